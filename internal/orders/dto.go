package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderDTO is the API representation of an order.
type OrderDTO struct {
	ID             uuid.UUID         `json:"id"`
	CustomerEmail  string            `json:"customer_email"`
	CustomerName   *string           `json:"customer_name,omitempty"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	Currency       string            `json:"currency"`
	Status         enums.OrderStatus `json:"status"`
	PayPalOrderID  *string           `json:"paypal_order_id,omitempty"`
	Shipping       *ShippingDTO      `json:"shipping,omitempty"`
	DeliveryZoneID *uuid.UUID        `json:"delivery_zone_id,omitempty"`
	Lines          []LineDTO         `json:"lines,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type ShippingDTO struct {
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Address    *string `json:"address,omitempty"`
	City       *string `json:"city,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// LineDTO is a frozen order line.
type LineDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderList is a cursor page of orders without lines.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func (s ShippingDTO) empty() bool {
	return s.Name == nil && s.Phone == nil && s.Address == nil && s.City == nil && s.PostalCode == nil && s.Notes == nil
}

func toDTO(m models.Order) OrderDTO {
	dto := OrderDTO{
		ID:             m.ID,
		CustomerEmail:  m.CustomerEmail,
		CustomerName:   m.CustomerName,
		TotalAmount:    m.TotalAmount,
		Currency:       m.Currency,
		Status:         m.Status,
		PayPalOrderID:  m.PayPalOrderID,
		DeliveryZoneID: m.DeliveryZoneID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	shipping := ShippingDTO{
		Name:       m.ShippingName,
		Phone:      m.ShippingPhone,
		Address:    m.ShippingAddress,
		City:       m.ShippingCity,
		PostalCode: m.ShippingPostalCode,
		Notes:      m.ShippingNotes,
	}
	if !shipping.empty() {
		dto.Shipping = &shipping
	}
	for _, l := range m.Lines {
		dto.Lines = append(dto.Lines, LineDTO{
			ID:          l.ID,
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
		})
	}
	return dto
}
