package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"orderhub/pkg/logger"
	"orderhub/pkg/metrics"
	"orderhub/pkg/otel"
)

// StockGateway reads and reduces inventory levels in the inventory service.
type StockGateway interface {
	AvailableQuantity(ctx context.Context, productID, token string) (int, error)
	DecreaseStock(ctx context.Context, productID string, quantity int, token string) error
}

// PriceGateway resolves the current unit price from the product service.
type PriceGateway interface {
	UnitPrice(ctx context.Context, productID, token string) (float64, error)
}

// LineRequest is one requested product/quantity pair, before pricing.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// ErrInvalidQuantity indicates a requested line with a non-positive quantity.
var ErrInvalidQuantity = errors.New("quantity must be greater than zero")

// Service orchestrates order placement against the inventory and product
// services and owns status changes for existing orders.
type Service struct {
	repo  Repository
	stock StockGateway
	price PriceGateway
	plog  PlacementLog
	log   *logger.Logger
}

// NewService wires the orchestrator's collaborators.
func NewService(repo Repository, stock StockGateway, price PriceGateway, plog PlacementLog, log *logger.Logger) *Service {
	return &Service{repo: repo, stock: stock, price: price, plog: plog, log: log}
}

// PlaceOrder validates availability, resolves pricing, persists the order and
// commits the inventory decrements.
//
// Both remote validation phases fan out concurrently across distinct products
// and must fully succeed before the next step runs. Once the order is
// persisted there is no rollback: a decrement failure is reported through a
// *CommitError returned alongside the persisted order.
func (s *Service) PlaceOrder(ctx context.Context, customerID string, lines []LineRequest, token string) (Order, error) {
	ctx, span := otel.AddSpan(ctx, "order.PlaceOrder",
		attribute.String("order.customer_id", customerID),
		attribute.Int("order.lines", len(lines)))
	defer span.End()

	if len(lines) == 0 {
		metrics.OrdersPlaced.WithLabelValues("rejected").Inc()
		return Order{}, ErrEmptyOrder
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			metrics.OrdersPlaced.WithLabelValues("rejected").Inc()
			return Order{}, fmt.Errorf("ProductId %s: %w", l.ProductID, ErrInvalidQuantity)
		}
	}

	distinct := distinctProducts(lines)

	if err := s.checkAvailability(ctx, distinct, lines, token); err != nil {
		metrics.OrdersPlaced.WithLabelValues("failed").Inc()
		return Order{}, err
	}

	prices, err := s.resolvePrices(ctx, distinct, token)
	if err != nil {
		metrics.OrdersPlaced.WithLabelValues("failed").Inc()
		return Order{}, err
	}

	items := make([]Line, 0, len(lines))
	var total float64
	for _, l := range lines {
		p := prices[l.ProductID]
		items = append(items, Line{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: p})
		total += float64(l.Quantity) * p
	}

	created, err := s.repo.Create(ctx, Order{
		CustomerID: customerID,
		Items:      items,
		TotalPrice: total,
		Status:     StatusPending,
	})
	if err != nil {
		metrics.OrdersPlaced.WithLabelValues("failed").Inc()
		return Order{}, fmt.Errorf("persist order: %w", err)
	}
	span.SetAttributes(attribute.String("order.id", created.ID))

	if commitErr := s.commitStock(ctx, created, token); commitErr != nil {
		metrics.OrdersPlaced.WithLabelValues("inconsistent").Inc()
		s.log.Error(ctx, "stock commit incomplete", "order_id", created.ID, "error", commitErr)
		return created, commitErr
	}

	metrics.OrdersPlaced.WithLabelValues("success").Inc()
	s.log.Info(ctx, "order placed", "order_id", created.ID, "customer_id", customerID, "total", created.TotalPrice)
	return created, nil
}

// checkAvailability fetches current stock per distinct product and verifies
// every requested line fits. All lookups must pass before pricing starts.
func (s *Service) checkAvailability(ctx context.Context, distinct []string, lines []LineRequest, token string) error {
	ctx, span := otel.AddSpan(ctx, "order.checkAvailability")
	defer span.End()

	quantities := make([]int, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	for i, pid := range distinct {
		i, pid := i, pid
		g.Go(func() error {
			q, err := s.stock.AvailableQuantity(gctx, pid, token)
			if err != nil {
				return fmt.Errorf("stock lookup for ProductId %s: %w", pid, err)
			}
			quantities[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	available := make(map[string]int, len(distinct))
	for i, pid := range distinct {
		available[pid] = quantities[i]
	}
	for _, l := range lines {
		if l.Quantity > available[l.ProductID] {
			return &InsufficientStockError{ProductID: l.ProductID}
		}
	}
	return nil
}

// resolvePrices looks up the unit price once per distinct product.
func (s *Service) resolvePrices(ctx context.Context, distinct []string, token string) (map[string]float64, error) {
	ctx, span := otel.AddSpan(ctx, "order.resolvePrices")
	defer span.End()

	resolved := make([]float64, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	for i, pid := range distinct {
		i, pid := i, pid
		g.Go(func() error {
			p, err := s.price.UnitPrice(gctx, pid, token)
			if err != nil {
				return fmt.Errorf("price resolution for ProductId %s: %w", pid, err)
			}
			resolved[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(distinct))
	for i, pid := range distinct {
		prices[pid] = resolved[i]
	}
	return prices, nil
}

// commitStock decrements inventory line by line. A failed line does not stop
// the remaining lines; every attempt lands in the placement log.
func (s *Service) commitStock(ctx context.Context, o Order, token string) error {
	ctx, span := otel.AddSpan(ctx, "order.commitStock")
	defer span.End()

	var failed []FailedLine
	for _, item := range o.Items {
		err := s.stock.DecreaseStock(ctx, item.ProductID, item.Quantity, token)
		ev := PlacementEvent{
			OrderID:   o.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Committed: err == nil,
			At:        time.Now().UTC(),
		}
		if err != nil {
			ev.Reason = err.Error()
			metrics.StockDecrementFailures.Inc()
			failed = append(failed, FailedLine{ProductID: item.ProductID, Quantity: item.Quantity, Err: err})
		}
		if logErr := s.plog.Append(ctx, ev); logErr != nil {
			s.log.Error(ctx, "placement log append failed", "order_id", o.ID, "product_id", item.ProductID, "error", logErr)
		}
	}
	if len(failed) > 0 {
		return &CommitError{OrderID: o.ID, Failed: failed}
	}
	return nil
}

// UpdateStatus sets a new status on an existing order. Any parseable status
// is accepted; transition legality is not checked.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status Status) (Order, error) {
	ctx, span := otel.AddSpan(ctx, "order.UpdateStatus",
		attribute.String("order.id", orderID),
		attribute.String("order.status", status.String()))
	defer span.End()

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	o.Status = status
	updated, err := s.repo.Update(ctx, o)
	if err != nil {
		return Order{}, err
	}
	s.log.Info(ctx, "order status updated", "order_id", orderID, "status", status)
	return updated, nil
}

// OrdersByDateRange lists orders created within a single-day window. A zero
// from defaults to today. Known quirk kept for compatibility with existing
// consumers: the window end derives from the from date, never from to.
func (s *Service) OrdersByDateRange(ctx context.Context, from, to time.Time) ([]Order, error) {
	ctx, span := otel.AddSpan(ctx, "order.OrdersByDateRange")
	defer span.End()

	if from.IsZero() {
		from = time.Now().UTC()
	}
	y, m, d := from.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := time.Date(y, m, d, 23, 59, 59, 0, time.UTC)

	return s.repo.ListCreatedBetween(ctx, start, end)
}

// Orders lists every persisted order.
func (s *Service) Orders(ctx context.Context) ([]Order, error) {
	ctx, span := otel.AddSpan(ctx, "order.Orders")
	defer span.End()
	return s.repo.List(ctx)
}

// OrdersByCustomer lists orders belonging to one customer.
func (s *Service) OrdersByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	ctx, span := otel.AddSpan(ctx, "order.OrdersByCustomer")
	defer span.End()
	return s.repo.ListByCustomer(ctx, customerID)
}

// OrdersByStatus lists orders currently in the given status.
func (s *Service) OrdersByStatus(ctx context.Context, status Status) ([]Order, error) {
	ctx, span := otel.AddSpan(ctx, "order.OrdersByStatus")
	defer span.End()
	return s.repo.ListByStatus(ctx, status)
}

// Order fetches a single order by ID.
func (s *Service) Order(ctx context.Context, id string) (Order, error) {
	ctx, span := otel.AddSpan(ctx, "order.Order")
	defer span.End()
	return s.repo.Get(ctx, id)
}

// PlacementEvents exposes the decrement attempt log for one order.
func (s *Service) PlacementEvents(ctx context.Context, orderID string) ([]PlacementEvent, error) {
	return s.plog.ByOrder(ctx, orderID)
}

func distinctProducts(lines []LineRequest) []string {
	seen := make(map[string]bool, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			out = append(out, l.ProductID)
		}
	}
	return out
}
