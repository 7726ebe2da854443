package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumen-optics/storefront/internal/domain"
)

type stubRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *stubRepoError) Error() string       { return "stub repository error" }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

type stubCartRepository struct {
	loadFn   func(ctx context.Context, profileID string) (domain.Cart, error)
	saveFn   func(ctx context.Context, profileID string, cart domain.Cart) error
	deleteFn func(ctx context.Context, profileID string) error

	saved map[string]domain.Cart
}

func newStubCartRepository() *stubCartRepository {
	return &stubCartRepository{saved: make(map[string]domain.Cart)}
}

func (r *stubCartRepository) Load(ctx context.Context, profileID string) (domain.Cart, error) {
	if r.loadFn != nil {
		return r.loadFn(ctx, profileID)
	}
	cart, ok := r.saved[profileID]
	if !ok {
		return domain.Cart{}, &stubRepoError{notFound: true}
	}
	return cart.Clone(), nil
}

func (r *stubCartRepository) Save(ctx context.Context, profileID string, cart domain.Cart) error {
	if r.saveFn != nil {
		return r.saveFn(ctx, profileID, cart)
	}
	r.saved[profileID] = cart.Clone()
	return nil
}

func (r *stubCartRepository) Delete(ctx context.Context, profileID string) error {
	if r.deleteFn != nil {
		return r.deleteFn(ctx, profileID)
	}
	delete(r.saved, profileID)
	return nil
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, repo *stubCartRepository) CartService {
	t.Helper()
	svc, err := NewCartService(CartServiceDeps{
		Repository: repo,
		Clock:      func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	return svc
}

func frameItem() domain.LineItem {
	return domain.LineItem{
		ProductID: 101,
		Name:      "Meridian Round Frame",
		Slug:      "meridian-round",
		UnitPrice: 500000,
	}
}

func lensItem() domain.LineItem {
	return domain.LineItem{
		ProductID: 205,
		Name:      "Blue Light Lens Upgrade",
		Slug:      "blue-light-lens",
		UnitPrice: 300000,
	}
}

func TestNewCartServiceValidatesDeps(t *testing.T) {
	if _, err := NewCartService(CartServiceDeps{Clock: time.Now}); err == nil {
		t.Error("expected error when repository missing")
	}
	if _, err := NewCartService(CartServiceDeps{Repository: newStubCartRepository()}); err == nil {
		t.Error("expected error when clock missing")
	}
}

func TestGetCartEmptyProfile(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())

	view, err := svc.GetCart(context.Background(), "profile-1")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(view.Items) != 0 || view.Total != 0 || view.ItemCount != 0 {
		t.Errorf("fresh profile should read as empty cart, got %+v", view)
	}
}

func TestGetCartRejectsBlankProfile(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	if _, err := svc.GetCart(context.Background(), "   "); !errors.Is(err, ErrCartInvalidInput) {
		t.Errorf("err = %v, want ErrCartInvalidInput", err)
	}
}

func TestAddItemInsertsWithQuantityOne(t *testing.T) {
	repo := newStubCartRepository()
	svc := newTestService(t, repo)

	view, err := svc.AddItem(context.Background(), AddItemCommand{ProfileID: "profile-1", Item: frameItem()})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].Quantity != 1 {
		t.Fatalf("view = %+v, want single line with quantity 1", view)
	}
	if view.Total != 500000 || view.ItemCount != 1 {
		t.Errorf("Total = %d ItemCount = %d", view.Total, view.ItemCount)
	}
	if !view.UpdatedAt.Equal(fixedNow) {
		t.Errorf("UpdatedAt = %v, want clock time", view.UpdatedAt)
	}
	if saved, ok := repo.saved["profile-1"]; !ok || len(saved.Items) != 1 {
		t.Error("mutation should be persisted before returning")
	}
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	ctx := context.Background()

	first := frameItem()
	if _, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-1", Item: first}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	repeat := frameItem()
	repeat.Name = "Renamed Frame"
	repeat.UnitPrice = 999999
	view, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-1", Item: repeat})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if len(view.Items) != 1 || view.Items[0].Quantity != 2 {
		t.Fatalf("view = %+v, want one line with quantity 2", view)
	}
	if view.Items[0].Name != "Meridian Round Frame" || view.Items[0].UnitPrice != 500000 {
		t.Errorf("descriptive fields must keep first-write values, got %+v", view.Items[0])
	}
	if view.Total != 1000000 {
		t.Errorf("Total = %d, want 1000000", view.Total)
	}
}

func TestAddItemValidation(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	ctx := context.Background()

	cases := []domain.LineItem{
		{},
		{ProductID: 101},
		{ProductID: 101, Name: "Frame", UnitPrice: -1},
	}
	for _, item := range cases {
		if _, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "p", Item: item}); !errors.Is(err, ErrCartInvalidInput) {
			t.Errorf("AddItem(%+v) err = %v, want ErrCartInvalidInput", item, err)
		}
	}
}

func TestUpdateQuantityAbsolute(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-1", Item: frameItem()}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	view, err := svc.UpdateQuantity(ctx, UpdateQuantityCommand{ProfileID: "profile-1", ItemID: 101, Quantity: 5})
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if view.Items[0].Quantity != 5 || view.Total != 2500000 {
		t.Errorf("quantity = %d total = %d, want 5 / 2500000", view.Items[0].Quantity, view.Total)
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-1", Item: frameItem()}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	view, err := svc.UpdateQuantity(ctx, UpdateQuantityCommand{ProfileID: "profile-1", ItemID: 101, Quantity: 0})
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if len(view.Items) != 0 {
		t.Errorf("line with quantity 0 should be removed, got %+v", view.Items)
	}
}

func TestUpdateQuantityUnknownItemIsNoOp(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-1", Item: frameItem()}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	view, err := svc.UpdateQuantity(ctx, UpdateQuantityCommand{ProfileID: "profile-1", ItemID: 999, Quantity: 4})
	if err != nil {
		t.Fatalf("unknown item must not error: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].Quantity != 1 {
		t.Errorf("cart should be unchanged, got %+v", view.Items)
	}
}

func TestRemoveItemIdempotent(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-1", Item: frameItem()}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	view, err := svc.RemoveItem(ctx, RemoveItemCommand{ProfileID: "profile-1", ItemID: 101})
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("items = %+v, want empty", view.Items)
	}

	view, err = svc.RemoveItem(ctx, RemoveItemCommand{ProfileID: "profile-1", ItemID: 101})
	if err != nil {
		t.Fatalf("second RemoveItem must not error: %v", err)
	}
	if len(view.Items) != 0 {
		t.Errorf("items = %+v, want empty", view.Items)
	}
}

func TestClearCart(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	ctx := context.Background()

	for _, item := range []domain.LineItem{frameItem(), lensItem()} {
		if _, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-1", Item: item}); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}

	view, err := svc.ClearCart(ctx, "profile-1")
	if err != nil {
		t.Fatalf("ClearCart: %v", err)
	}
	if len(view.Items) != 0 || view.Total != 0 || view.ItemCount != 0 {
		t.Errorf("cleared cart = %+v, want empty", view)
	}
}

func TestMultiItemScenario(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	ctx := context.Background()

	caseItem := domain.LineItem{ProductID: 310, Name: "Hard Shell Case", Slug: "hard-shell-case", UnitPrice: 200000}

	steps := []AddItemCommand{
		{ProfileID: "profile-1", Item: frameItem()},
		{ProfileID: "profile-1", Item: lensItem()},
		{ProfileID: "profile-1", Item: frameItem()},
		{ProfileID: "profile-1", Item: caseItem},
	}
	var view CartView
	var err error
	for _, cmd := range steps {
		view, err = svc.AddItem(ctx, cmd)
		if err != nil {
			t.Fatalf("AddItem(%d): %v", cmd.Item.ProductID, err)
		}
	}

	if len(view.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(view.Items))
	}
	if view.Total != 1500000 {
		t.Errorf("Total = %d, want 1500000", view.Total)
	}
	if view.ItemCount != 4 {
		t.Errorf("ItemCount = %d, want 4", view.ItemCount)
	}
	order := []int64{101, 205, 310}
	for i, id := range order {
		if view.Items[i].ID != id {
			t.Errorf("Items[%d].ID = %d, want %d (insertion order)", i, view.Items[i].ID, id)
		}
	}
}

func TestSaveFailureSurfacesAndSkipsListeners(t *testing.T) {
	repo := newStubCartRepository()
	repo.saveFn = func(context.Context, string, domain.Cart) error {
		return &stubRepoError{unavailable: true}
	}
	svc := newTestService(t, repo)

	notified := 0
	defer svc.Subscribe(func(CartView) { notified++ })()

	_, err := svc.AddItem(context.Background(), AddItemCommand{ProfileID: "profile-1", Item: frameItem()})
	if !errors.Is(err, ErrCartUnavailable) {
		t.Errorf("err = %v, want ErrCartUnavailable", err)
	}
	if notified != 0 {
		t.Errorf("listeners notified %d times after failed save, want 0", notified)
	}
}

func TestLoadConflictSurfaces(t *testing.T) {
	repo := newStubCartRepository()
	repo.loadFn = func(context.Context, string) (domain.Cart, error) {
		return domain.Cart{}, &stubRepoError{conflict: true}
	}
	svc := newTestService(t, repo)

	if _, err := svc.GetCart(context.Background(), "profile-1"); !errors.Is(err, ErrCartConflict) {
		t.Errorf("err = %v, want ErrCartConflict", err)
	}
}

func TestSubscribeNotifiesEachMutation(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	ctx := context.Background()

	var views []CartView
	unsubscribe := svc.Subscribe(func(view CartView) { views = append(views, view) })

	if _, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-1", Item: frameItem()}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.UpdateQuantity(ctx, UpdateQuantityCommand{ProfileID: "profile-1", ItemID: 101, Quantity: 3}); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}

	if len(views) != 2 {
		t.Fatalf("listener received %d snapshots, want 2", len(views))
	}
	if views[1].Total != 1500000 {
		t.Errorf("second snapshot total = %d, want 1500000", views[1].Total)
	}

	unsubscribe()
	if _, err := svc.ClearCart(ctx, "profile-1"); err != nil {
		t.Fatalf("ClearCart: %v", err)
	}
	if len(views) != 2 {
		t.Errorf("unsubscribed listener still notified, got %d snapshots", len(views))
	}
}

func TestSnapshotIsolation(t *testing.T) {
	svc := newTestService(t, newStubCartRepository())
	ctx := context.Background()

	view, err := svc.AddItem(ctx, AddItemCommand{ProfileID: "profile-1", Item: frameItem()})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	view.Items[0].Quantity = 99

	fresh, err := svc.GetCart(ctx, "profile-1")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if fresh.Items[0].Quantity != 1 {
		t.Errorf("mutating a snapshot leaked into stored state: quantity = %d", fresh.Items[0].Quantity)
	}
}
