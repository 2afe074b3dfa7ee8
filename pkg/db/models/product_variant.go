package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is a size/color style sub-selection with its own stock and an
// optional price override.
type ProductVariant struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string              `gorm:"column:name;not null"`
	SKU       *string             `gorm:"column:sku"`
	Stock     int                 `gorm:"column:stock;not null"`
	Price     decimal.NullDecimal `gorm:"column:price;type:numeric(12,2)"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
