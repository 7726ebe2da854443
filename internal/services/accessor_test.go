package services

import (
	"context"
	"errors"
	"testing"
)

func TestNewCartAccessorValidation(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())

	if _, err := NewCartAccessor(nil, "profile-1"); !errors.Is(err, ErrAccessorUnavailable) {
		t.Errorf("err = %v, want ErrAccessorUnavailable", err)
	}
	if _, err := NewCartAccessor(svc, ""); !errors.Is(err, ErrCartInvalidInput) {
		t.Errorf("err = %v, want ErrCartInvalidInput", err)
	}
}

func TestAccessorDerivedReads(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-1", Item: frameItem()}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-1", Item: lensItem()}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	accessor, err := NewCartAccessor(svc, "profile-1")
	if err != nil {
		t.Fatalf("NewCartAccessor: %v", err)
	}

	total, err := accessor.Total(ctx)
	if err != nil {
		t.Fatalf("Total: %v", err)
	}
	if total != 800000 {
		t.Errorf("Total = %d, want 800000", total)
	}

	count, err := accessor.ItemCount(ctx)
	if err != nil {
		t.Fatalf("ItemCount: %v", err)
	}
	if count != 2 {
		t.Errorf("ItemCount = %d, want 2", count)
	}
}

func TestAccessorSubscribeFiltersProfiles(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	ctx := context.Background()

	accessor, err := NewCartAccessor(svc, "profile-1")
	if err != nil {
		t.Fatalf("NewCartAccessor: %v", err)
	}

	got := 0
	defer accessor.Subscribe(func(CartView) { got++ })()

	if _, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-1", Item: frameItem()}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-2", Item: lensItem()}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if got != 1 {
		t.Errorf("bound accessor received %d snapshots, want 1", got)
	}
}
