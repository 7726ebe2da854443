package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/lumen-optics/storefront/internal/domain"
	"github.com/lumen-optics/storefront/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartConflict indicates the stored cart document is incompatible or was modified concurrently.
var ErrCartConflict = errors.New("cart service: conflict")

// CartServiceDeps wires the storage and clock dependencies for cart operations.
type CartServiceDeps struct {
	Repository repositories.CartRepository
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type cartService struct {
	repo   repositories.CartRepository
	now    func() time.Time
	logger func(context.Context, string, map[string]any)

	mu        sync.Mutex
	listeners map[int]CartListener
	nextToken int
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		repo:      deps.Repository,
		now:       func() time.Time { return deps.Clock().UTC() },
		logger:    logger,
		listeners: make(map[int]CartListener),
	}, nil
}

// GetCart loads the stored cart for the profile. An absent cart reads as empty.
func (s *cartService) GetCart(ctx context.Context, profileID string) (CartView, error) {
	pid := strings.TrimSpace(profileID)
	if pid == "" {
		return CartView{}, ErrCartInvalidInput
	}

	cart, err := s.loadCart(ctx, pid)
	if err != nil {
		return CartView{}, err
	}
	return s.snapshot(pid, cart), nil
}

// AddItem inserts the product with quantity one, or increments the existing
// line by one. Descriptive fields of an existing line are never overwritten.
func (s *cartService) AddItem(ctx context.Context, cmd AddItemCommand) (CartView, error) {
	pid := strings.TrimSpace(cmd.ProfileID)
	if pid == "" {
		return CartView{}, ErrCartInvalidInput
	}
	if err := validateCandidate(cmd.Item); err != nil {
		return CartView{}, err
	}

	view, err := s.mutate(ctx, pid, func(cart domain.Cart) domain.Cart {
		return domain.AddLine(cart, cmd.Item)
	})
	if err != nil {
		return CartView{}, err
	}

	s.logger(ctx, "cart.item_added", map[string]any{
		"product_id": cmd.Item.ProductID,
		"item_count": view.ItemCount,
	})
	return view, nil
}

// UpdateQuantity sets the absolute quantity for a line. Quantities at or below
// zero remove the line. Unknown item ids leave the cart untouched.
func (s *cartService) UpdateQuantity(ctx context.Context, cmd UpdateQuantityCommand) (CartView, error) {
	pid := strings.TrimSpace(cmd.ProfileID)
	if pid == "" {
		return CartView{}, ErrCartInvalidInput
	}

	return s.mutate(ctx, pid, func(cart domain.Cart) domain.Cart {
		return domain.SetQuantity(cart, cmd.ItemID, cmd.Quantity)
	})
}

// RemoveItem drops a line item. Removing an absent item is a no-op, not an error.
func (s *cartService) RemoveItem(ctx context.Context, cmd RemoveItemCommand) (CartView, error) {
	pid := strings.TrimSpace(cmd.ProfileID)
	if pid == "" {
		return CartView{}, ErrCartInvalidInput
	}

	return s.mutate(ctx, pid, func(cart domain.Cart) domain.Cart {
		return domain.RemoveLine(cart, cmd.ItemID)
	})
}

// ClearCart empties the profile's cart in a single transition.
func (s *cartService) ClearCart(ctx context.Context, profileID string) (CartView, error) {
	pid := strings.TrimSpace(profileID)
	if pid == "" {
		return CartView{}, ErrCartInvalidInput
	}

	view, err := s.mutate(ctx, pid, domain.ClearLines)
	if err != nil {
		return CartView{}, err
	}

	s.logger(ctx, "cart.cleared", nil)
	return view, nil
}

// Subscribe registers a listener and returns its unsubscribe function.
func (s *cartService) Subscribe(listener CartListener) func() {
	if listener == nil {
		return func() {}
	}

	s.mu.Lock()
	token := s.nextToken
	s.nextToken++
	s.listeners[token] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, token)
		s.mu.Unlock()
	}
}

// mutate runs a load, reduce, save cycle. The reduced cart is persisted before
// any listener sees it, so a storage failure never leaves phantom state in
// subscribers.
func (s *cartService) mutate(ctx context.Context, profileID string, reduce func(domain.Cart) domain.Cart) (CartView, error) {
	cart, err := s.loadCart(ctx, profileID)
	if err != nil {
		return CartView{}, err
	}

	next := reduce(cart)
	next.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, profileID, next); err != nil {
		s.logger(ctx, "cart.save_failed", map[string]any{"error": err.Error()})
		return CartView{}, s.translateRepoError(err)
	}

	view := s.snapshot(profileID, next)
	s.notify(view)
	return view, nil
}

func (s *cartService) loadCart(ctx context.Context, profileID string) (domain.Cart, error) {
	cart, err := s.repo.Load(ctx, profileID)
	if err != nil {
		if isRepoNotFound(err) {
			return domain.Cart{Items: []domain.LineItem{}}, nil
		}
		return domain.Cart{}, s.translateRepoError(err)
	}
	return cart, nil
}

func (s *cartService) snapshot(profileID string, cart domain.Cart) CartView {
	cloned := cart.Clone()
	return CartView{
		ProfileID: profileID,
		Items:     cloned.Items,
		Total:     cloned.Total(),
		ItemCount: cloned.ItemCount(),
		UpdatedAt: cloned.UpdatedAt,
	}
}

func (s *cartService) notify(view CartView) {
	s.mu.Lock()
	listeners := make([]CartListener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(view)
	}
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsConflict():
			return ErrCartConflict
		case repoErr.IsUnavailable():
			return ErrCartUnavailable
		}
	}
	return ErrCartUnavailable
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func validateCandidate(item domain.LineItem) error {
	if item.ProductID <= 0 && item.ID <= 0 {
		return ErrCartInvalidInput
	}
	if strings.TrimSpace(item.Name) == "" {
		return ErrCartInvalidInput
	}
	if item.UnitPrice < 0 {
		return ErrCartInvalidInput
	}
	return nil
}
