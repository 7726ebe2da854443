package services

import (
	"context"
	"time"

	"github.com/lumen-optics/storefront/internal/domain"
)

// CartView is the immutable snapshot handed to transport layers and listeners.
// Totals and counts are derived from the items at snapshot time, never cached
// across mutations.
type CartView struct {
	ProfileID string
	Items     []domain.LineItem
	Total     int64
	ItemCount int
	UpdatedAt time.Time
}

// CartListener receives a fresh snapshot after every successful mutation.
type CartListener func(CartView)

// AddItemCommand describes a product added to a profile's cart. Quantity is
// implicit: each add contributes exactly one unit.
type AddItemCommand struct {
	ProfileID string
	Item      domain.LineItem
}

// UpdateQuantityCommand sets the absolute quantity for a line item. Zero or
// negative quantities remove the line.
type UpdateQuantityCommand struct {
	ProfileID string
	ItemID    int64
	Quantity  int
}

// RemoveItemCommand deletes a line item regardless of its quantity.
type RemoveItemCommand struct {
	ProfileID string
	ItemID    int64
}

// CartService exposes cart state transitions and derived reads for client profiles.
type CartService interface {
	// GetCart returns the current snapshot. Profiles with no stored cart get
	// an empty snapshot, not an error.
	GetCart(ctx context.Context, profileID string) (CartView, error)
	AddItem(ctx context.Context, cmd AddItemCommand) (CartView, error)
	UpdateQuantity(ctx context.Context, cmd UpdateQuantityCommand) (CartView, error)
	RemoveItem(ctx context.Context, cmd RemoveItemCommand) (CartView, error)
	ClearCart(ctx context.Context, profileID string) (CartView, error)
	// Subscribe registers a listener notified after each successful mutation.
	// The returned function unsubscribes it.
	Subscribe(listener CartListener) func()
}

// HealthService reports readiness of downstream dependencies.
type HealthService interface {
	Report(ctx context.Context) (domain.HealthReport, error)
}

// BuildInfo carries release metadata surfaced on liveness endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}
