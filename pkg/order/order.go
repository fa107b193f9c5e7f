// Package order holds the order entity, the persistence contracts and the
// placement orchestration.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Line is one product/quantity pair within an order. UnitPrice is resolved
// from the product service at placement time, never supplied by the caller.
type Line struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Order represents a persisted customer order. ID and CreatedAt are assigned
// by the repository on Create; Status is the only field that changes after
// creation.
type Order struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	Items      []Line    `json:"items"`
	TotalPrice float64   `json:"totalPrice"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Repository defines behavior for persisting orders.
type Repository interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context) ([]Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	ListByStatus(ctx context.Context, status Status) ([]Order, error)
	ListCreatedBetween(ctx context.Context, start, end time.Time) ([]Order, error)
	Update(ctx context.Context, o Order) (Order, error)
}

// PlacementEvent records one stock decrement attempt for a persisted order.
// The log is append-only so partial commits stay detectable after the fact.
type PlacementEvent struct {
	OrderID   string
	ProductID string
	Quantity  int
	Committed bool
	Reason    string
	At        time.Time
}

// PlacementLog records decrement attempts made while committing an order.
type PlacementLog interface {
	Append(ctx context.Context, ev PlacementEvent) error
	ByOrder(ctx context.Context, orderID string) ([]PlacementEvent, error)
}

var (
	// ErrNotFound indicates the requested order does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrEmptyOrder indicates a placement request with no lines.
	ErrEmptyOrder = errors.New("order must contain at least one item")

	// ErrUpstream indicates the inventory or product service did not answer
	// with a usable response.
	ErrUpstream = errors.New("upstream service unavailable")
)

// InsufficientStockError reports a line whose quantity exceeds what the
// inventory service has available.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return "insufficient stock for ProductId: " + e.ProductID
}

// CommitError reports lines whose stock decrement failed after the order was
// already persisted. The order itself is returned to the caller alongside
// this error; there is no rollback path.
type CommitError struct {
	OrderID string
	Failed  []FailedLine
}

// FailedLine names one line that could not be decremented and why.
type FailedLine struct {
	ProductID string
	Quantity  int
	Err       error
}

func (e *CommitError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		ids = append(ids, f.ProductID)
	}
	return fmt.Sprintf("order %s persisted but stock decrement failed for: %s",
		e.OrderID, strings.Join(ids, ", "))
}
