package notifications

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventOrderCompleted is published once an order's payment has been captured.
const EventOrderCompleted = "order.completed"

// OrderCompleted carries what the confirmation mailer needs without reading the database.
type OrderCompleted struct {
	OrderID       uuid.UUID       `json:"order_id"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  *string         `json:"customer_name,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	PayPalOrderID string          `json:"paypal_order_id"`
	CaptureID     string          `json:"capture_id,omitempty"`
	Shipping      *Shipping       `json:"shipping,omitempty"`
}

type Shipping struct {
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Address    *string `json:"address,omitempty"`
	City       *string `json:"city,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// Envelope wraps every published payload.
type Envelope struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       OrderCompleted `json:"data"`
}
