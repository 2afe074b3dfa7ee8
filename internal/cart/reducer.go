package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
)

// Action is a cart mutation. The set is closed: AddItem, RemoveItem, UpdateQuantity,
// ClearCart and SetOpen.
type Action interface {
	isAction()
}

// AddItem increments the matching line or appends a new one with quantity 1, and opens the cart.
type AddItem struct {
	Item catalog.Purchasable
}

// RemoveItem deletes the matching line if present.
type RemoveItem struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

// UpdateQuantity sets a line quantity exactly; zero or less removes the line.
type UpdateQuantity struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

type ClearCart struct{}

type SetOpen struct {
	Open bool
}

func (AddItem) isAction()        {}
func (RemoveItem) isAction()     {}
func (UpdateQuantity) isAction() {}
func (ClearCart) isAction()      {}
func (SetOpen) isAction()        {}

// Mutates reports whether the action changes persisted lines.
func Mutates(a Action) bool {
	_, ok := a.(SetOpen)
	return !ok
}

// Reduce applies an action to a state without modifying the input.
func Reduce(state State, action Action) State {
	next := state.clone()
	switch a := action.(type) {
	case AddItem:
		if a.Item == nil {
			return next
		}
		key := a.Item.Key()
		if i := next.indexOf(key); i >= 0 {
			next.Lines[i].Quantity++
		} else {
			next.Lines = append(next.Lines, lineFor(a.Item))
		}
		next.Open = true
	case RemoveItem:
		next.Lines = without(next.Lines, keyFor(a.ProductID, a.VariantID))
	case UpdateQuantity:
		key := keyFor(a.ProductID, a.VariantID)
		if a.Quantity <= 0 {
			next.Lines = without(next.Lines, key)
			break
		}
		if i := next.indexOf(key); i >= 0 {
			next.Lines[i].Quantity = a.Quantity
		}
	case ClearCart:
		next.Lines = []Line{}
	case SetOpen:
		next.Open = a.Open
	}
	return next
}

func lineFor(item catalog.Purchasable) Line {
	switch p := item.(type) {
	case catalog.WithVariant:
		variant := p.Variant
		return Line{Product: p.Product, Variant: &variant, Quantity: 1}
	case catalog.BaseOnly:
		return Line{Product: p.Product, Quantity: 1}
	}
	return Line{}
}

func without(lines []Line, key catalog.Key) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Key() != key {
			out = append(out, l)
		}
	}
	return out
}
