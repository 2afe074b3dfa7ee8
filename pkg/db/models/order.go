package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is a customer's checkout record. Only Status and PayPalOrderID change after
// creation.
type Order struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CustomerEmail      string            `gorm:"column:customer_email;not null"`
	CustomerName       *string           `gorm:"column:customer_name"`
	TotalAmount        decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency           string            `gorm:"column:currency;not null"`
	Status             enums.OrderStatus `gorm:"column:status;not null"`
	PayPalOrderID      *string           `gorm:"column:paypal_order_id;index"`
	ShippingName       *string           `gorm:"column:shipping_name"`
	ShippingPhone      *string           `gorm:"column:shipping_phone"`
	ShippingAddress    *string           `gorm:"column:shipping_address"`
	ShippingCity       *string           `gorm:"column:shipping_city"`
	ShippingPostalCode *string           `gorm:"column:shipping_postal_code"`
	ShippingNotes      *string           `gorm:"column:shipping_notes"`
	DeliveryZoneID     *uuid.UUID        `gorm:"column:delivery_zone_id;type:uuid"`
	Lines              []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
