package catalog

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Key identifies a purchasable selection. VariantID is uuid.Nil when no variant is chosen.
type Key struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
}

// HasVariant reports whether the key targets a specific variant.
func (k Key) HasVariant() bool {
	return k.VariantID != uuid.Nil
}

// NewKey builds a Key from an optional variant id.
func NewKey(productID uuid.UUID, variantID *uuid.UUID) Key {
	key := Key{ProductID: productID}
	if variantID != nil {
		key.VariantID = *variantID
	}
	return key
}

// ProductSnapshot is the product data captured when something is put in the cart.
type ProductSnapshot struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Stock    int             `json:"stock"`
	ImageURL *string         `json:"image_url,omitempty"`
}

// VariantSnapshot is the variant data captured alongside a ProductSnapshot.
type VariantSnapshot struct {
	ID    uuid.UUID        `json:"id"`
	Name  string           `json:"name"`
	Stock int              `json:"stock"`
	Price *decimal.Decimal `json:"price,omitempty"`
}

// Snapshot captures the cart-relevant fields of a product.
func (p ProductDTO) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Currency: p.Currency,
		Stock:    p.Stock,
		ImageURL: p.FirstImageURL(),
	}
}

// Snapshot captures the cart-relevant fields of a variant.
func (v VariantDTO) Snapshot() VariantSnapshot {
	return VariantSnapshot{ID: v.ID, Name: v.Name, Stock: v.Stock, Price: v.Price}
}

// Purchasable is a product selection with its effective price and stock resolved.
// The only implementations are BaseOnly and WithVariant.
type Purchasable interface {
	UnitPrice() decimal.Decimal
	Stock() int
	Key() Key
	DisplayName() string
	isPurchasable()
}

// BaseOnly is a product bought without a variant.
type BaseOnly struct {
	Product ProductSnapshot
}

func (b BaseOnly) UnitPrice() decimal.Decimal { return b.Product.Price }
func (b BaseOnly) Stock() int                 { return b.Product.Stock }
func (b BaseOnly) Key() Key                   { return Key{ProductID: b.Product.ID} }
func (b BaseOnly) DisplayName() string        { return b.Product.Name }
func (BaseOnly) isPurchasable()               {}

// WithVariant is a product bought as one of its variants.
type WithVariant struct {
	Product ProductSnapshot
	Variant VariantSnapshot
}

// UnitPrice is the variant override when set, else the product price.
func (w WithVariant) UnitPrice() decimal.Decimal {
	if w.Variant.Price != nil {
		return *w.Variant.Price
	}
	return w.Product.Price
}

func (w WithVariant) Stock() int { return w.Variant.Stock }

func (w WithVariant) Key() Key {
	return Key{ProductID: w.Product.ID, VariantID: w.Variant.ID}
}

// DisplayName appends the variant name, e.g. "Tee (Large)".
func (w WithVariant) DisplayName() string {
	if w.Variant.Name == "" {
		return w.Product.Name
	}
	return fmt.Sprintf("%s (%s)", w.Product.Name, w.Variant.Name)
}

func (WithVariant) isPurchasable() {}

// Resolve picks the Purchasable shape once for a product and optional variant.
func Resolve(product ProductSnapshot, variant *VariantSnapshot) Purchasable {
	if variant == nil || variant.ID == uuid.Nil {
		return BaseOnly{Product: product}
	}
	return WithVariant{Product: product, Variant: *variant}
}
