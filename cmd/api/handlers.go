package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"orderhub/pkg/order"
	"orderhub/pkg/otel"
)

type ctxKey int

const (
	userKey ctxKey = iota + 1
	tokenKey
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type itemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Items []itemRequest `json:"items"`
}

type updateStatusRequest struct {
	Status order.Status `json:"status"`
}

// itemResponse deliberately omits the resolved unit price; callers see the
// order total only.
type itemResponse struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type orderResponse struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"createdAt"`
	CustomerID string         `json:"customerId"`
	Items      []itemResponse `json:"items"`
	Status     order.Status   `json:"status"`
	TotalPrice float64        `json:"totalPrice"`
}

func toOrderResponse(o order.Order) orderResponse {
	items := make([]itemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemResponse{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return orderResponse{
		ID:         o.ID,
		CreatedAt:  o.CreatedAt,
		CustomerID: o.CustomerID,
		Items:      items,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
	}
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// loginHandler authenticates a caller and issues a bearer session token.
// @Summary Login
// @Description Authenticates the caller and returns a bearer token
// @Accept json
// @Produce json
// @Param creds body loginRequest true "Credentials"
// @Success 200 {object} loginResponse
// @Router /login [post]
func loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "loginHandler")
	defer span.End()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "invalid credentials", http.StatusBadRequest)
		return
	}
	token := uuid.NewString()
	if err := redisClient.Set(ctx, "session:"+token, req.Username, time.Hour).Err(); err != nil {
		log.Error(ctx, "store session", "error", err)
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{Token: token})
}

// authMiddleware resolves the bearer token to a customer. The raw token is
// kept on the context so it can be forwarded to the upstream services
// unmodified.
func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		user, err := redisClient.Get(r.Context(), "session:"+token).Result()
		if err != nil || user == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}

// createOrderHandler places a new order.
// @Summary Place order
// @Description Validates stock, resolves prices and persists the order
// @Accept json
// @Produce json
// @Param order body createOrderRequest true "Requested lines"
// @Success 201 {object} orderResponse
// @Failure 400 "invalid request"
// @Failure 409 "insufficient stock"
// @Failure 502 "upstream unavailable"
// @Security ApiKeyAuth
// @Router /orders [post]
func createOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "createOrderHandler")
	defer span.End()

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	customer, _ := ctx.Value(userKey).(string)
	token, _ := ctx.Value(tokenKey).(string)

	lines := make([]order.LineRequest, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, order.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	o, err := svc.PlaceOrder(ctx, customer, lines, token)
	if err != nil {
		var stockErr *order.InsufficientStockError
		var commitErr *order.CommitError
		switch {
		case errors.Is(err, order.ErrEmptyOrder), errors.Is(err, order.ErrInvalidQuantity):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.As(err, &stockErr):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case errors.As(err, &commitErr):
			// The order is persisted; inventory is only partially reduced.
			// Return it anyway and leave the trail in the placement log.
			log.Error(ctx, "order placed with incomplete stock commit",
				"order_id", commitErr.OrderID, "error", err)
			respondJSON(w, http.StatusCreated, toOrderResponse(o))
			return
		case errors.Is(err, order.ErrUpstream):
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		default:
			log.Error(ctx, "place order", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

// listOrdersHandler lists orders, optionally filtered.
// @Summary List orders
// @Description Lists all orders, or filters by date range, customer or status
// @Produce json
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Param customerId query string false "Customer filter"
// @Param status query string false "Status filter"
// @Success 200 {array} orderResponse
// @Security ApiKeyAuth
// @Router /orders [get]
func listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listOrdersHandler")
	defer span.End()

	q := r.URL.Query()

	var (
		orders []order.Order
		err    error
	)
	switch {
	case q.Get("dateFrom") != "" || q.Get("dateTo") != "":
		var from, to time.Time
		if from, err = parseDate(q.Get("dateFrom")); err != nil {
			http.Error(w, "invalid dateFrom", http.StatusBadRequest)
			return
		}
		if to, err = parseDate(q.Get("dateTo")); err != nil {
			http.Error(w, "invalid dateTo", http.StatusBadRequest)
			return
		}
		orders, err = svc.OrdersByDateRange(ctx, from, to)
	case q.Get("customerId") != "":
		orders, err = svc.OrdersByCustomer(ctx, q.Get("customerId"))
	case q.Get("status") != "":
		var status order.Status
		if status, err = order.ParseStatus(q.Get("status")); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		orders, err = svc.OrdersByStatus(ctx, status)
	default:
		orders, err = svc.Orders(ctx)
	}
	if err != nil {
		log.Error(ctx, "list orders", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponses(orders))
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", v)
}

// getOrderHandler retrieves an order by ID.
// @Summary Get order
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} orderResponse
// @Failure 404 "not found"
// @Security ApiKeyAuth
// @Router /orders/{id} [get]
func getOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "getOrderHandler")
	defer span.End()

	o, err := svc.Order(ctx, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Error(ctx, "get order", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

type placementResponse struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	Committed bool      `json:"committed"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// listPlacementsHandler exposes the stock decrement attempts recorded for an
// order, so partially committed orders can be found and repaired.
// @Summary List placement events
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {array} placementResponse
// @Security ApiKeyAuth
// @Router /orders/{id}/placements [get]
func listPlacementsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listPlacementsHandler")
	defer span.End()

	events, err := svc.PlacementEvents(ctx, mux.Vars(r)["id"])
	if err != nil {
		log.Error(ctx, "list placements", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]placementResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, placementResponse{
			ProductID: ev.ProductID,
			Quantity:  ev.Quantity,
			Committed: ev.Committed,
			Reason:    ev.Reason,
			At:        ev.At,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// updateStatusHandler sets a new status on an existing order.
// @Summary Update order status
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param body body updateStatusRequest true "New status"
// @Success 200 {object} orderResponse
// @Failure 400 "unknown status"
// @Failure 404 "not found"
// @Security ApiKeyAuth
// @Router /orders/{id}/status [patch]
func updateStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "updateStatusHandler")
	defer span.End()

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	o, err := svc.UpdateStatus(ctx, mux.Vars(r)["id"], req.Status)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Error(ctx, "update status", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}
