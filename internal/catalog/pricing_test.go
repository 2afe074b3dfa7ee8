package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestResolveBaseOnlyUsesProductPriceAndStock(t *testing.T) {
	product := ProductSnapshot{ID: uuid.New(), Name: "Mug", Price: decimal.RequireFromString("12.50"), Stock: 7}

	p := Resolve(product, nil)
	if _, ok := p.(BaseOnly); !ok {
		t.Fatalf("expected BaseOnly, got %T", p)
	}
	if !p.UnitPrice().Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("expected 12.50, got %s", p.UnitPrice())
	}
	if p.Stock() != 7 {
		t.Fatalf("expected stock 7, got %d", p.Stock())
	}
	if p.Key() != (Key{ProductID: product.ID}) || p.Key().HasVariant() {
		t.Fatalf("unexpected key %+v", p.Key())
	}
	if p.DisplayName() != "Mug" {
		t.Fatalf("expected Mug, got %q", p.DisplayName())
	}
}

func TestResolveWithVariant(t *testing.T) {
	override := decimal.NewFromInt(25)
	cases := []struct {
		name      string
		variant   VariantSnapshot
		wantPrice decimal.Decimal
		wantStock int
		wantName  string
	}{
		{
			name:      "override price",
			variant:   VariantSnapshot{ID: uuid.New(), Name: "XL", Stock: 3, Price: &override},
			wantPrice: override,
			wantStock: 3,
			wantName:  "Tee (XL)",
		},
		{
			name:      "product price fallback",
			variant:   VariantSnapshot{ID: uuid.New(), Name: "S", Stock: 0},
			wantPrice: decimal.NewFromInt(20),
			wantStock: 0,
			wantName:  "Tee (S)",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			product := ProductSnapshot{ID: uuid.New(), Name: "Tee", Price: decimal.NewFromInt(20), Stock: 50}

			p := Resolve(product, &tc.variant)
			if _, ok := p.(WithVariant); !ok {
				t.Fatalf("expected WithVariant, got %T", p)
			}
			if !p.UnitPrice().Equal(tc.wantPrice) {
				t.Fatalf("expected price %s, got %s", tc.wantPrice, p.UnitPrice())
			}
			if p.Stock() != tc.wantStock {
				t.Fatalf("expected stock %d, got %d", tc.wantStock, p.Stock())
			}
			if want := (Key{ProductID: product.ID, VariantID: tc.variant.ID}); p.Key() != want {
				t.Fatalf("expected key %+v, got %+v", want, p.Key())
			}
			if p.DisplayName() != tc.wantName {
				t.Fatalf("expected %q, got %q", tc.wantName, p.DisplayName())
			}
		})
	}
}

func TestResolveTreatsNilVariantIDAsBase(t *testing.T) {
	product := ProductSnapshot{ID: uuid.New(), Price: decimal.NewFromInt(1)}
	if p := Resolve(product, &VariantSnapshot{}); !isBaseOnly(p) {
		t.Fatalf("expected BaseOnly, got %T", p)
	}
}

func isBaseOnly(p Purchasable) bool {
	_, ok := p.(BaseOnly)
	return ok
}

func TestNewKey(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	if got := NewKey(productID, nil); got != (Key{ProductID: productID}) {
		t.Fatalf("unexpected base key %+v", got)
	}
	if got := NewKey(productID, &variantID); got != (Key{ProductID: productID, VariantID: variantID}) {
		t.Fatalf("unexpected variant key %+v", got)
	}
}
