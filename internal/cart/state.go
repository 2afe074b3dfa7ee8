package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
)

// Line is one cart entry: a product snapshot, an optional variant snapshot and a quantity of at least one.
type Line struct {
	Product  catalog.ProductSnapshot  `json:"product"`
	Variant  *catalog.VariantSnapshot `json:"variant,omitempty"`
	Quantity int                      `json:"quantity"`
}

// Key is the line identity: product id plus variant id (or none).
func (l Line) Key() catalog.Key {
	key := catalog.Key{ProductID: l.Product.ID}
	if l.Variant != nil {
		key.VariantID = l.Variant.ID
	}
	return key
}

// Purchasable resolves the line's effective price and stock.
func (l Line) Purchasable() catalog.Purchasable {
	return catalog.Resolve(l.Product, l.Variant)
}

func (l Line) UnitPrice() decimal.Decimal {
	return l.Purchasable().UnitPrice()
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// State is an immutable cart snapshot. Reduce always returns a fresh value.
type State struct {
	Lines []Line `json:"lines"`
	Open  bool   `json:"-"`
}

// Empty returns a state with no lines.
func Empty() State {
	return State{Lines: []Line{}}
}

// TotalItems is the sum of line quantities.
func (s State) TotalItems() int {
	total := 0
	for _, l := range s.Lines {
		total += l.Quantity
	}
	return total
}

// TotalAmount is the sum of effective unit price times quantity.
func (s State) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (s State) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Currency is the currency of the first line, or "" for an empty cart.
func (s State) Currency() string {
	if len(s.Lines) == 0 {
		return ""
	}
	return s.Lines[0].Product.Currency
}

// Find returns the line with the given key.
func (s State) Find(key catalog.Key) (Line, bool) {
	if i := s.indexOf(key); i >= 0 {
		return s.Lines[i], true
	}
	return Line{}, false
}

func (s State) indexOf(key catalog.Key) int {
	for i, l := range s.Lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	lines := make([]Line, len(s.Lines))
	copy(lines, s.Lines)
	return State{Lines: lines, Open: s.Open}
}

func keyFor(productID uuid.UUID, variantID *uuid.UUID) catalog.Key {
	return catalog.NewKey(productID, variantID)
}
