package repositories

import (
	"context"

	"github.com/lumen-optics/storefront/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository persists one cart document per client profile.
type CartRepository interface {
	// Load returns the cart stored for the profile. A profile that has never
	// saved a cart yields a not-found repository error.
	Load(ctx context.Context, profileID string) (domain.Cart, error)
	// Save overwrites the stored cart for the profile.
	Save(ctx context.Context, profileID string, cart domain.Cart) error
	// Delete removes the stored cart. Deleting an absent cart is not an error.
	Delete(ctx context.Context, profileID string) error
}

// HealthRepository exposes status of downstream dependencies for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.HealthReport, error)
}
