// Package postgres implements order storage backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"orderhub/pkg/order"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository. The caller must ensure the schema
// exists; see EnsureSchema.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the tables used by the repository and placement log.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			items JSONB NOT NULL,
			total_price DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_placements (
			order_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			quantity INT NOT NULL,
			committed BOOLEAN NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts a new order, assigning its identity and creation timestamp.
func (r *Repository) Create(ctx context.Context, o order.Order) (order.Order, error) {
	o.ID = uuid.NewString()
	o.CreatedAt = time.Now().UTC()

	items, err := json.Marshal(o.Items)
	if err != nil {
		return order.Order{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, items, total_price, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.CustomerID, items, o.TotalPrice, o.Status.String(), o.CreatedAt)
	if err != nil {
		return order.Order{}, err
	}
	return o, nil
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, items, total_price, status, created_at FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return order.Order{}, order.ErrNotFound
	}
	return o, err
}

// List fetches all orders.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	return r.query(ctx,
		`SELECT id, customer_id, items, total_price, status, created_at FROM orders`)
}

// ListByCustomer fetches orders belonging to the given customer.
func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	return r.query(ctx,
		`SELECT id, customer_id, items, total_price, status, created_at FROM orders WHERE customer_id = $1`,
		customerID)
}

// ListByStatus fetches orders currently in the given status.
func (r *Repository) ListByStatus(ctx context.Context, status order.Status) ([]order.Order, error) {
	return r.query(ctx,
		`SELECT id, customer_id, items, total_price, status, created_at FROM orders WHERE status = $1`,
		status.String())
}

// ListCreatedBetween fetches orders created in [start, end] inclusive.
func (r *Repository) ListCreatedBetween(ctx context.Context, start, end time.Time) ([]order.Order, error) {
	return r.query(ctx,
		`SELECT id, customer_id, items, total_price, status, created_at FROM orders WHERE created_at BETWEEN $1 AND $2`,
		start, end)
}

// Update persists a status change to an existing order. Identity, items and
// creation timestamp never change after the first write.
func (r *Repository) Update(ctx context.Context, o order.Order) (order.Order, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, o.ID, o.Status.String())
	if err != nil {
		return order.Order{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return order.Order{}, order.ErrNotFound
	}
	return r.Get(ctx, o.ID)
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]order.Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (order.Order, error) {
	var (
		o      order.Order
		items  []byte
		status string
	)
	if err := s.Scan(&o.ID, &o.CustomerID, &items, &o.TotalPrice, &status, &o.CreatedAt); err != nil {
		return order.Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return order.Order{}, err
	}
	parsed, err := order.ParseStatus(status)
	if err != nil {
		return order.Order{}, err
	}
	o.Status = parsed
	return o, nil
}

// PlacementLog stores decrement attempts in the order_placements table.
type PlacementLog struct {
	db *sql.DB
}

// NewPlacementLog creates a Postgres-backed placement log.
func NewPlacementLog(db *sql.DB) *PlacementLog {
	return &PlacementLog{db: db}
}

// Append records one decrement attempt. Rows are never updated or deleted.
func (l *PlacementLog) Append(ctx context.Context, ev order.PlacementEvent) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO order_placements (order_id, product_id, quantity, committed, reason, at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.OrderID, ev.ProductID, ev.Quantity, ev.Committed, ev.Reason, ev.At)
	return err
}

// ByOrder returns the attempts recorded for one order, oldest first.
func (l *PlacementLog) ByOrder(ctx context.Context, orderID string) ([]order.PlacementEvent, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT order_id, product_id, quantity, committed, reason, at
		 FROM order_placements WHERE order_id = $1 ORDER BY at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []order.PlacementEvent
	for rows.Next() {
		var ev order.PlacementEvent
		if err := rows.Scan(&ev.OrderID, &ev.ProductID, &ev.Quantity, &ev.Committed, &ev.Reason, &ev.At); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
