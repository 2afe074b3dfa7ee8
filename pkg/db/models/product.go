package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a purchasable catalog item.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Description *string          `gorm:"column:description"`
	Price       decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       int              `gorm:"column:stock;not null"`
	Currency    string           `gorm:"column:currency;not null"`
	CategoryID  *uuid.UUID       `gorm:"column:category_id;type:uuid"`
	GroupID     *uuid.UUID       `gorm:"column:group_id;type:uuid"`
	IsActive    bool             `gorm:"column:is_active;not null"`
	Category    *Category        `gorm:"foreignKey:CategoryID"`
	Group       *ProductGroup    `gorm:"foreignKey:GroupID"`
	Images      []ProductImage   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
