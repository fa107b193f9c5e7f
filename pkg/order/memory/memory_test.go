package memory

import (
	"context"
	"testing"
	"time"

	"orderhub/pkg/order"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := New()

	created, err := repo.Create(ctx, order.Order{
		CustomerID: "alice",
		Items:      []order.Line{{ProductID: "42", Quantity: 2, UnitPrice: 9.99}},
		TotalPrice: 19.98,
		Status:     order.StatusPending,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected assigned id")
	}
	if created.CreatedAt.IsZero() || created.CreatedAt.Location() != time.UTC {
		t.Fatalf("expected UTC createdAt, got %v", created.CreatedAt)
	}

	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CustomerID != "alice" || got.TotalPrice != 19.98 {
		t.Fatalf("unexpected order: %+v", got)
	}

	if _, err := repo.Get(ctx, "missing"); err != order.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	second, err := repo.Create(ctx, order.Order{
		CustomerID: "bob",
		Items:      []order.Line{{ProductID: "7", Quantity: 1, UnitPrice: 1}},
		Status:     order.StatusPending,
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.ID == created.ID {
		t.Fatal("expected distinct ids")
	}

	list, err := repo.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v len=%d", err, len(list))
	}

	byCustomer, err := repo.ListByCustomer(ctx, "bob")
	if err != nil || len(byCustomer) != 1 || byCustomer[0].ID != second.ID {
		t.Fatalf("list by customer: %v %+v", err, byCustomer)
	}
}

func TestRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := New()

	created, err := repo.Create(ctx, order.Order{
		CustomerID: "alice",
		Items:      []order.Line{{ProductID: "42", Quantity: 1, UnitPrice: 1}},
		Status:     order.StatusPending,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	created.Status = order.StatusShipped
	updated, err := repo.Update(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != order.StatusShipped {
		t.Fatalf("expected Shipped, got %s", updated.Status)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("createdAt must survive updates")
	}

	byStatus, err := repo.ListByStatus(ctx, order.StatusShipped)
	if err != nil || len(byStatus) != 1 {
		t.Fatalf("list by status: %v len=%d", err, len(byStatus))
	}

	if _, err := repo.Update(ctx, order.Order{ID: "missing"}); err != order.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryListCreatedBetween(t *testing.T) {
	ctx := context.Background()
	repo := New()

	created, err := repo.Create(ctx, order.Order{
		CustomerID: "alice",
		Items:      []order.Line{{ProductID: "42", Quantity: 1, UnitPrice: 1}},
		Status:     order.StatusPending,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Bounds are inclusive on both ends.
	hits, err := repo.ListCreatedBetween(ctx, created.CreatedAt, created.CreatedAt)
	if err != nil || len(hits) != 1 {
		t.Fatalf("expected inclusive match: %v len=%d", err, len(hits))
	}

	misses, err := repo.ListCreatedBetween(ctx,
		created.CreatedAt.Add(time.Second), created.CreatedAt.Add(time.Hour))
	if err != nil || len(misses) != 0 {
		t.Fatalf("expected no match outside window: %v len=%d", err, len(misses))
	}
}

func TestPlacementLog(t *testing.T) {
	ctx := context.Background()
	plog := NewPlacementLog()

	events := []order.PlacementEvent{
		{OrderID: "o1", ProductID: "a", Quantity: 1, Committed: true},
		{OrderID: "o1", ProductID: "b", Quantity: 2, Committed: false, Reason: "insufficient stock"},
		{OrderID: "o2", ProductID: "a", Quantity: 3, Committed: true},
	}
	for _, ev := range events {
		if err := plog.Append(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := plog.ByOrder(ctx, "o1")
	if err != nil {
		t.Fatalf("by order: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events for o1, got %d", len(got))
	}
	if got[0].ProductID != "a" || got[1].ProductID != "b" {
		t.Fatalf("expected append order preserved, got %+v", got)
	}
	if got[1].Reason == "" {
		t.Fatal("expected reason on failed event")
	}
}
