package domain

import "time"

// LineItem represents one distinct purchasable product inside a cart.
//
// ID is the line key. Upstream callers derive it from the catalog product id,
// which means two variants of the same base product collapse onto a single
// line unless the caller mints variant-specific ids. Attributes and SKU are
// display-only and never participate in line identity.
type LineItem struct {
	ID         int64
	ProductID  int64
	Name       string
	Slug       string
	UnitPrice  int64
	Quantity   int
	Image      string
	SKU        string
	Attributes map[string]string
}

// Subtotal returns unit price times quantity for this line.
func (li LineItem) Subtotal() int64 {
	if li.Quantity <= 0 {
		return 0
	}
	return li.UnitPrice * int64(li.Quantity)
}

// Cart aggregates the ordered collection of line items for one client profile.
// Insertion order is preserved for display; ids are unique across Items.
type Cart struct {
	Items     []LineItem
	UpdatedAt time.Time
}

// Total recomputes the grand total from the current items on every call.
// Nothing is cached, so the result always reflects live state.
func (c Cart) Total() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// ItemCount recomputes the summed quantity across all lines.
func (c Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		if item.Quantity > 0 {
			count += item.Quantity
		}
	}
	return count
}

// IndexOf returns the position of the line with the given id, or -1.
func (c Cart) IndexOf(id int64) int {
	for i, item := range c.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so reducers never alias the caller's slices.
func (c Cart) Clone() Cart {
	dup := Cart{UpdatedAt: c.UpdatedAt}
	if c.Items == nil {
		return dup
	}
	dup.Items = make([]LineItem, len(c.Items))
	copy(dup.Items, c.Items)
	for i := range dup.Items {
		dup.Items[i].Attributes = cloneAttributes(dup.Items[i].Attributes)
	}
	return dup
}

func cloneAttributes(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
