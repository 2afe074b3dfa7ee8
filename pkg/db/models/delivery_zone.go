package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryZone is reference data shown at checkout; it is not enforced by payment.
type DeliveryZone struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name           string          `gorm:"column:name;not null"`
	Fee            decimal.Decimal `gorm:"column:fee;type:numeric(12,2);not null"`
	MinOrderAmount decimal.Decimal `gorm:"column:min_order_amount;type:numeric(12,2);not null"`
	EstimatedDays  int             `gorm:"column:estimated_days;not null"`
	IsActive       bool            `gorm:"column:is_active;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
