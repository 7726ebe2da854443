package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lumen-optics/storefront/internal/domain"
	"github.com/lumen-optics/storefront/internal/platform/httpx"
	"github.com/lumen-optics/storefront/internal/platform/profile"
	"github.com/lumen-optics/storefront/internal/services"
)

const maxCartBodySize = 16 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

// CartHandlers exposes cart endpoints scoped to the resolved client profile.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs handlers over the cart service.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{itemID}", h.updateQuantity)
	r.Delete("/items/{itemID}", h.removeItem)
}

type cartItemPayload struct {
	ID         int64             `json:"id"`
	ProductID  int64             `json:"productId"`
	Name       string            `json:"name"`
	Slug       string            `json:"slug"`
	UnitPrice  int64             `json:"price"`
	Quantity   int               `json:"quantity"`
	Subtotal   int64             `json:"subtotal"`
	Image      string            `json:"image,omitempty"`
	SKU        string            `json:"sku,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type cartPayload struct {
	Items     []cartItemPayload `json:"items"`
	Total     int64             `json:"total"`
	ItemCount int               `json:"itemCount"`
	UpdatedAt string            `json:"updatedAt,omitempty"`
}

type cartResponse struct {
	Cart    cartPayload `json:"cart"`
	Message string      `json:"message,omitempty"`
}

type addItemRequest struct {
	ID         int64             `json:"id"`
	ProductID  int64             `json:"productId"`
	Name       string            `json:"name"`
	Slug       string            `json:"slug"`
	UnitPrice  int64             `json:"price"`
	Image      string            `json:"image"`
	SKU        string            `json:"sku"`
	Attributes map[string]string `json:"attributes"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.requireProfile(ctx, w)
	if !ok {
		return
	}

	view, err := h.carts.GetCart(ctx, profileID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	setCartResponseHeaders(w, view)
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view)})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.requireProfile(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req addItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	view, err := h.carts.AddItem(ctx, services.AddItemCommand{
		ProfileID: profileID,
		Item: domain.LineItem{
			ID:         req.ID,
			ProductID:  req.ProductID,
			Name:       req.Name,
			Slug:       req.Slug,
			UnitPrice:  req.UnitPrice,
			Image:      req.Image,
			SKU:        req.SKU,
			Attributes: req.Attributes,
		},
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	setCartResponseHeaders(w, view)
	writeJSONResponse(w, http.StatusOK, cartResponse{
		Cart:    buildCartPayload(view),
		Message: fmt.Sprintf("%s added to cart", strings.TrimSpace(req.Name)),
	})
}

func (h *CartHandlers) updateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.requireProfile(ctx, w)
	if !ok {
		return
	}

	itemID, err := parseItemID(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req updateQuantityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	view, err := h.carts.UpdateQuantity(ctx, services.UpdateQuantityCommand{
		ProfileID: profileID,
		ItemID:    itemID,
		Quantity:  *req.Quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	setCartResponseHeaders(w, view)
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view)})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.requireProfile(ctx, w)
	if !ok {
		return
	}

	itemID, err := parseItemID(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	view, err := h.carts.RemoveItem(ctx, services.RemoveItemCommand{ProfileID: profileID, ItemID: itemID})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	setCartResponseHeaders(w, view)
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view)})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.requireProfile(ctx, w)
	if !ok {
		return
	}

	view, err := h.carts.ClearCart(ctx, profileID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	setCartResponseHeaders(w, view)
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view)})
}

func (h *CartHandlers) requireProfile(ctx context.Context, w http.ResponseWriter) (string, bool) {
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	profileID, ok := profile.FromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("profile_required", "client profile could not be resolved", http.StatusBadRequest))
		return "", false
	}
	return profileID, true
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "stored cart is incompatible; clear and retry", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart storage is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "cart operation failed", http.StatusInternalServerError))
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func parseItemID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if raw == "" {
		return 0, errors.New("item id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("item id %q is not a positive integer", raw)
	}
	return id, nil
}

func setCartResponseHeaders(w http.ResponseWriter, view services.CartView) {
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	if !view.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", view.UpdatedAt.UTC().Format(http.TimeFormat))
	}
}

func buildCartPayload(view services.CartView) cartPayload {
	payload := cartPayload{
		Items:     make([]cartItemPayload, 0, len(view.Items)),
		Total:     view.Total,
		ItemCount: view.ItemCount,
	}
	for _, item := range view.Items {
		payload.Items = append(payload.Items, cartItemPayload{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Name:       item.Name,
			Slug:       item.Slug,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			Subtotal:   item.Subtotal(),
			Image:      item.Image,
			SKU:        item.SKU,
			Attributes: item.Attributes,
		})
	}
	if !view.UpdatedAt.IsZero() {
		payload.UpdatedAt = view.UpdatedAt.UTC().Format(http.TimeFormat)
	}
	return payload
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
