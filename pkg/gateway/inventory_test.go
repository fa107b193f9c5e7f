package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"orderhub/pkg/order"
)

func TestAvailableQuantitySumsEntries(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode([]map[string]any{
			{"productId": "42", "quantity": 3},
			{"productId": "42", "quantity": 4},
		})
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL, nil)
	q, err := c.AvailableQuantity(context.Background(), "42", "tok")
	if err != nil {
		t.Fatalf("available quantity: %v", err)
	}
	if q != 7 {
		t.Fatalf("expected summed quantity 7, got %d", q)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer token forwarded, got %q", gotAuth)
	}
	if gotPath != "/42" {
		t.Fatalf("expected /42, got %q", gotPath)
	}
}

func TestAvailableQuantityBareInteger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("5"))
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL, nil)
	q, err := c.AvailableQuantity(context.Background(), "42", "tok")
	if err != nil {
		t.Fatalf("available quantity: %v", err)
	}
	if q != 5 {
		t.Fatalf("expected 5, got %d", q)
	}
}

func TestAvailableQuantityEmptyBodyIsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL, nil)
	q, err := c.AvailableQuantity(context.Background(), "42", "tok")
	if err != nil {
		t.Fatalf("available quantity: %v", err)
	}
	if q != 0 {
		t.Fatalf("expected 0 for empty body, got %d", q)
	}
}

func TestAvailableQuantityUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL, nil)
	if _, err := c.AvailableQuantity(context.Background(), "42", "tok"); !errors.Is(err, order.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	srv.Close()
	if _, err := c.AvailableQuantity(context.Background(), "42", "tok"); !errors.Is(err, order.ErrUpstream) {
		t.Fatalf("expected upstream error after close, got %v", err)
	}
}

func TestDecreaseStock(t *testing.T) {
	type update struct {
		ProductID   string `json:"productId"`
		NewQuantity int    `json:"newQuantity"`
	}
	var got update
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte("5"))
		case http.MethodPost:
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected json content type, got %q", ct)
			}
			json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL, nil)
	if err := c.DecreaseStock(context.Background(), "42", 2, "tok"); err != nil {
		t.Fatalf("decrease stock: %v", err)
	}
	if got.ProductID != "42" || got.NewQuantity != 3 {
		t.Fatalf("expected absolute write 42/3, got %+v", got)
	}
}

func TestDecreaseStockInsufficientAtWriteTime(t *testing.T) {
	posted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte("1"))
		case http.MethodPost:
			posted = true
		}
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL, nil)
	err := c.DecreaseStock(context.Background(), "42", 2, "tok")
	var stockErr *order.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductID != "42" {
		t.Fatalf("expected product 42, got %s", stockErr.ProductID)
	}
	if posted {
		t.Fatal("expected no write after failed re-check")
	}
}

func TestDecreaseStockWriteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte("5"))
		case http.MethodPost:
			http.Error(w, "boom", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := NewInventoryClient(srv.URL, nil)
	if err := c.DecreaseStock(context.Background(), "42", 2, "tok"); !errors.Is(err, order.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
