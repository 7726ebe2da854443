package services

import (
	"context"
	"errors"
)

// ErrAccessorUnavailable indicates the accessor was constructed without its service.
var ErrAccessorUnavailable = errors.New("cart accessor: unavailable")

// CartAccessor is a read façade binding a single profile to the cart service.
// Components that only render cart state depend on this instead of the full
// mutation surface.
type CartAccessor struct {
	svc       CartService
	profileID string
}

// NewCartAccessor binds the accessor to a profile.
func NewCartAccessor(svc CartService, profileID string) (*CartAccessor, error) {
	if svc == nil {
		return nil, ErrAccessorUnavailable
	}
	if profileID == "" {
		return nil, ErrCartInvalidInput
	}
	return &CartAccessor{svc: svc, profileID: profileID}, nil
}

// Cart returns the current snapshot for the bound profile.
func (a *CartAccessor) Cart(ctx context.Context) (CartView, error) {
	if a == nil || a.svc == nil {
		return CartView{}, ErrAccessorUnavailable
	}
	return a.svc.GetCart(ctx, a.profileID)
}

// Total returns the monetary total in minor units, recomputed on every call.
func (a *CartAccessor) Total(ctx context.Context) (int64, error) {
	view, err := a.Cart(ctx)
	if err != nil {
		return 0, err
	}
	return view.Total, nil
}

// ItemCount returns the summed quantity across all lines.
func (a *CartAccessor) ItemCount(ctx context.Context) (int, error) {
	view, err := a.Cart(ctx)
	if err != nil {
		return 0, err
	}
	return view.ItemCount, nil
}

// Subscribe forwards snapshots for the bound profile only.
func (a *CartAccessor) Subscribe(listener CartListener) func() {
	if a == nil || a.svc == nil || listener == nil {
		return func() {}
	}
	return a.svc.Subscribe(func(view CartView) {
		if view.ProfileID == a.profileID {
			listener(view)
		}
	})
}
