package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"orderhub/pkg/order"
)

func TestUnitPrice(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write([]byte("9.99"))
	}))
	defer srv.Close()

	c := NewProductClient(srv.URL, nil)
	p, err := c.UnitPrice(context.Background(), "42", "tok")
	if err != nil {
		t.Fatalf("unit price: %v", err)
	}
	if p != 9.99 {
		t.Fatalf("expected 9.99, got %v", p)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer token forwarded, got %q", gotAuth)
	}
	if gotPath != "/42/price" {
		t.Fatalf("expected /42/price, got %q", gotPath)
	}
}

func TestUnitPriceNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewProductClient(srv.URL, nil)
	if _, err := c.UnitPrice(context.Background(), "42", "tok"); !errors.Is(err, order.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestUnitPriceEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewProductClient(srv.URL, nil)
	if _, err := c.UnitPrice(context.Background(), "42", "tok"); !errors.Is(err, order.ErrUpstream) {
		t.Fatalf("expected error for empty body, got %v", err)
	}
}

func TestUnitPriceNegative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("-1.5"))
	}))
	defer srv.Close()

	c := NewProductClient(srv.URL, nil)
	if _, err := c.UnitPrice(context.Background(), "42", "tok"); !errors.Is(err, order.ErrUpstream) {
		t.Fatalf("expected error for negative price, got %v", err)
	}
}
