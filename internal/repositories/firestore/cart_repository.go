package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lumen-optics/storefront/internal/domain"
	"github.com/lumen-optics/storefront/internal/repositories"
)

const schemaVersion = 1

// CartRepository persists one cart document per client profile in a Firestore
// collection. Documents use the same versioned envelope as the file backend so
// backends stay interchangeable.
type CartRepository struct {
	client     *firestore.Client
	collection string
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(client *firestore.Client, collection string) (*CartRepository, error) {
	if client == nil {
		return nil, errors.New("firestore cart repository: client is required")
	}
	trimmed := strings.TrimSpace(collection)
	if trimmed == "" {
		return nil, errors.New("firestore cart repository: collection name is required")
	}
	return &CartRepository{client: client, collection: trimmed}, nil
}

type cartDocument struct {
	Version   int                `firestore:"version"`
	Items     []lineItemDocument `firestore:"items"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

type lineItemDocument struct {
	ID         int64             `firestore:"id"`
	ProductID  int64             `firestore:"productId"`
	Name       string            `firestore:"name"`
	Slug       string            `firestore:"slug"`
	UnitPrice  int64             `firestore:"price"`
	Quantity   int               `firestore:"quantity"`
	Image      string            `firestore:"image,omitempty"`
	SKU        string            `firestore:"sku,omitempty"`
	Attributes map[string]string `firestore:"attributes,omitempty"`
}

// Load reads the cart stored for the profile.
func (r *CartRepository) Load(ctx context.Context, profileID string) (domain.Cart, error) {
	doc, err := r.docRef(profileID)
	if err != nil {
		return domain.Cart{}, err
	}

	snap, err := doc.Get(ctx)
	if err != nil {
		return domain.Cart{}, wrapError("firestore cart load", err)
	}

	var stored cartDocument
	if err := snap.DataTo(&stored); err != nil {
		return domain.Cart{}, newError("firestore cart load", fmt.Errorf("decoding cart document: %w", err))
	}
	if stored.Version != schemaVersion {
		return domain.Cart{}, &Error{
			op:       "firestore cart load",
			err:      fmt.Errorf("unsupported cart schema version %d", stored.Version),
			conflict: true,
		}
	}

	return docToCart(stored), nil
}

// Save overwrites the stored cart for the profile.
func (r *CartRepository) Save(ctx context.Context, profileID string, cart domain.Cart) error {
	doc, err := r.docRef(profileID)
	if err != nil {
		return err
	}
	if _, err := doc.Set(ctx, cartToDoc(cart)); err != nil {
		return wrapError("firestore cart save", err)
	}
	return nil
}

// Delete removes the stored cart. Firestore deletes are idempotent already.
func (r *CartRepository) Delete(ctx context.Context, profileID string) error {
	doc, err := r.docRef(profileID)
	if err != nil {
		return err
	}
	if _, err := doc.Delete(ctx); err != nil {
		return wrapError("firestore cart delete", err)
	}
	return nil
}

// Ping verifies the backend answers reads, for readiness probes. A not-found
// response still proves connectivity.
func (r *CartRepository) Ping(ctx context.Context) error {
	_, err := r.client.Collection(r.collection).Doc("_healthz").Get(ctx)
	if err == nil || status.Code(err) == codes.NotFound {
		return nil
	}
	return wrapError("firestore ping", err)
}

func (r *CartRepository) docRef(profileID string) (*firestore.DocumentRef, error) {
	trimmed := strings.TrimSpace(profileID)
	if trimmed == "" {
		return nil, &Error{op: "firestore cart", err: errors.New("profile id is required"), conflict: true}
	}
	return r.client.Collection(r.collection).Doc(trimmed), nil
}

func cartToDoc(cart domain.Cart) cartDocument {
	doc := cartDocument{
		Version:   schemaVersion,
		Items:     make([]lineItemDocument, 0, len(cart.Items)),
		UpdatedAt: cart.UpdatedAt.UTC(),
	}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, lineItemDocument{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Name:       item.Name,
			Slug:       item.Slug,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			Image:      item.Image,
			SKU:        item.SKU,
			Attributes: item.Attributes,
		})
	}
	return doc
}

func docToCart(doc cartDocument) domain.Cart {
	cart := domain.Cart{
		Items:     make([]domain.LineItem, 0, len(doc.Items)),
		UpdatedAt: doc.UpdatedAt,
	}
	for _, item := range doc.Items {
		cart.Items = append(cart.Items, domain.LineItem{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Name:       item.Name,
			Slug:       item.Slug,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			Image:      item.Image,
			SKU:        item.SKU,
			Attributes: item.Attributes,
		})
	}
	return cart
}
