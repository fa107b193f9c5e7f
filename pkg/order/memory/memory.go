// Package memory implements in-memory order storage. Used by tests and as
// the fallback when no database is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"orderhub/pkg/order"
)

// Repository provides an in-memory implementation of order.Repository.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{orders: make(map[string]order.Order)}
}

// Create stores the order, assigning its identity and creation timestamp.
func (r *Repository) Create(ctx context.Context, o order.Order) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = uuid.NewString()
	o.CreatedAt = time.Now().UTC()
	r.orders[o.ID] = o
	return o, nil
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

// List returns all orders.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

// ListByCustomer returns orders belonging to the given customer.
func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

// ListByStatus returns orders currently in the given status.
func (r *Repository) ListByStatus(ctx context.Context, status order.Status) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

// ListCreatedBetween returns orders with createdAt in [start, end] inclusive.
func (r *Repository) ListCreatedBetween(ctx context.Context, start, end time.Time) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []order.Order
	for _, o := range r.orders {
		if !o.CreatedAt.Before(start) && !o.CreatedAt.After(end) {
			out = append(out, o)
		}
	}
	return out, nil
}

// Update replaces an existing order. ID and CreatedAt are preserved.
func (r *Repository) Update(ctx context.Context, o order.Order) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.orders[o.ID]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	o.CreatedAt = existing.CreatedAt
	r.orders[o.ID] = o
	return o, nil
}

// PlacementLog is an append-only in-memory decrement attempt log.
type PlacementLog struct {
	mu     sync.RWMutex
	events []order.PlacementEvent
}

// NewPlacementLog creates an empty in-memory placement log.
func NewPlacementLog() *PlacementLog {
	return &PlacementLog{}
}

// Append records one decrement attempt.
func (l *PlacementLog) Append(ctx context.Context, ev order.PlacementEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

// ByOrder returns the attempts recorded for one order, in append order.
func (l *PlacementLog) ByOrder(ctx context.Context, orderID string) ([]order.PlacementEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []order.PlacementEvent
	for _, ev := range l.events {
		if ev.OrderID == orderID {
			out = append(out, ev)
		}
	}
	return out, nil
}
