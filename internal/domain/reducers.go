package domain

// Reducers are the pure state transitions behind the cart store. Each one
// takes the current cart by value and returns the next cart without touching
// its input, which keeps them testable with no persistence wired in.

// AddLine inserts the candidate as a new line with quantity 1, or increments
// the existing line's quantity by exactly 1 when the id is already present.
// Descriptive fields of an existing line are never overwritten: the first
// write wins, matching the price-frozen-at-add-time contract. The candidate's
// own Quantity field is ignored. A zero candidate id falls back to ProductID.
func AddLine(cart Cart, candidate LineItem) Cart {
	next := cart.Clone()

	if candidate.ID == 0 {
		candidate.ID = candidate.ProductID
	}

	if idx := next.IndexOf(candidate.ID); idx >= 0 {
		next.Items[idx].Quantity++
		return next
	}

	candidate.Quantity = 1
	candidate.Attributes = cloneAttributes(candidate.Attributes)
	next.Items = append(next.Items, candidate)
	return next
}

// SetQuantity replaces the line's quantity with the exact value given.
// A quantity of zero or below removes the line instead; a stored quantity is
// therefore always >= 1. Unknown ids leave the cart unchanged.
func SetQuantity(cart Cart, id int64, quantity int) Cart {
	if quantity <= 0 {
		return RemoveLine(cart, id)
	}

	next := cart.Clone()
	if idx := next.IndexOf(id); idx >= 0 {
		next.Items[idx].Quantity = quantity
	}
	return next
}

// RemoveLine drops the line with the given id. Unknown ids are a no-op.
func RemoveLine(cart Cart, id int64) Cart {
	next := cart.Clone()
	idx := next.IndexOf(id)
	if idx < 0 {
		return next
	}
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	return next
}

// ClearLines empties the collection unconditionally.
func ClearLines(cart Cart) Cart {
	next := cart.Clone()
	next.Items = []LineItem{}
	return next
}
