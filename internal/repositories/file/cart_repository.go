package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/lumen-optics/storefront/internal/domain"
	"github.com/lumen-optics/storefront/internal/repositories"
)

// schemaVersion tags persisted cart documents so future migrations can detect
// older payloads. Unknown versions are rejected rather than silently coerced.
const schemaVersion = 1

// CartRepository stores one JSON cart document per client profile under a data
// directory. Writes go through an atomic rename so a crash mid-write never
// leaves a truncated document behind.
type CartRepository struct {
	dir string
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository ensures the data directory exists and returns the repository.
func NewCartRepository(dir string) (*CartRepository, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, errors.New("file cart repository: data directory is required")
	}
	if err := os.MkdirAll(trimmed, 0o750); err != nil {
		return nil, fmt.Errorf("file cart repository: creating data directory: %w", err)
	}
	return &CartRepository{dir: trimmed}, nil
}

type cartDocument struct {
	Version   int                `json:"version"`
	Items     []lineItemDocument `json:"items"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type lineItemDocument struct {
	ID         int64             `json:"id"`
	ProductID  int64             `json:"productId"`
	Name       string            `json:"name"`
	Slug       string            `json:"slug"`
	UnitPrice  int64             `json:"price"`
	Quantity   int               `json:"quantity"`
	Image      string            `json:"image,omitempty"`
	SKU        string            `json:"sku,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Load reads the cart for the profile. A missing file maps to a not-found error.
func (r *CartRepository) Load(ctx context.Context, profileID string) (domain.Cart, error) {
	path, err := r.docPath(profileID)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Cart{}, &Error{op: "load", err: err, notFound: true}
	}
	if err != nil {
		return domain.Cart{}, &Error{op: "load", err: err, unavailable: true}
	}

	var doc cartDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Cart{}, &Error{op: "load", err: fmt.Errorf("decoding cart document: %w", err), conflict: true}
	}
	if doc.Version != schemaVersion {
		return domain.Cart{}, &Error{op: "load", err: fmt.Errorf("unsupported cart schema version %d", doc.Version), conflict: true}
	}

	return docToCart(doc), nil
}

// Save overwrites the stored cart for the profile.
func (r *CartRepository) Save(ctx context.Context, profileID string, cart domain.Cart) error {
	path, err := r.docPath(profileID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(cartToDoc(cart), "", "  ")
	if err != nil {
		return &Error{op: "save", err: err, unavailable: true}
	}
	if err := atomic.WriteFile(path, bytes.NewReader(raw)); err != nil {
		return &Error{op: "save", err: err, unavailable: true}
	}
	return nil
}

// Delete removes the stored cart. Deleting an absent cart succeeds.
func (r *CartRepository) Delete(ctx context.Context, profileID string) error {
	path, err := r.docPath(profileID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return &Error{op: "delete", err: err, unavailable: true}
}

// Ping verifies the data directory is writable, for readiness probes.
func (r *CartRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(r.dir)
	if err != nil {
		return &Error{op: "ping", err: err, unavailable: true}
	}
	if !info.IsDir() {
		return &Error{op: "ping", err: fmt.Errorf("%s is not a directory", r.dir), unavailable: true}
	}
	return nil
}

func (r *CartRepository) docPath(profileID string) (string, error) {
	trimmed := strings.TrimSpace(profileID)
	if trimmed == "" {
		return "", &Error{op: "resolve", err: errors.New("profile id is required"), conflict: true}
	}
	// Profile ids are sanitised upstream, but never trust them as path segments.
	if strings.ContainsAny(trimmed, "/\\") || trimmed == "." || trimmed == ".." {
		return "", &Error{op: "resolve", err: fmt.Errorf("invalid profile id %q", trimmed), conflict: true}
	}
	return filepath.Join(r.dir, trimmed+".json"), nil
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
