// Package order creates orders from server-verified carts.
package order

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusPlaced is the status of a freshly created order.
const StatusPlaced = "Pedido Realizado"

// StatusChange is one entry of an order's status history.
type StatusChange struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	ChangedBy string    `json:"changedBy"`
}

// Order is a persisted order. Items and Summary hold the verification report
// exactly as priced by the server.
type Order struct {
	ID              uuid.UUID
	UserID          string
	Items           json.RawMessage
	Summary         json.RawMessage
	TotalVerified   decimal.Decimal
	PaymentMethod   string
	ShippingAddress json.RawMessage
	Status          string
	StatusHistory   []StatusChange
	CreatedAt       time.Time
}

type orderJSON struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           json.RawMessage `json:"items"`
	Summary         json.RawMessage `json:"summary"`
	TotalVerified   float64         `json:"totalVerified"`
	PaymentMethod   string          `json:"paymentMethod"`
	ShippingAddress json.RawMessage `json:"shippingAddress"`
	Status          string          `json:"status"`
	StatusHistory   []StatusChange  `json:"statusHistory"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// MarshalJSON renders the order for API responses.
func (o Order) MarshalJSON() ([]byte, error) {
	history := o.StatusHistory
	if history == nil {
		history = []StatusChange{}
	}
	return json.Marshal(orderJSON{
		ID:              o.ID.String(),
		UserID:          o.UserID,
		Items:           rawOr(o.Items, "[]"),
		Summary:         rawOr(o.Summary, "null"),
		TotalVerified:   o.TotalVerified.InexactFloat64(),
		PaymentMethod:   o.PaymentMethod,
		ShippingAddress: rawOr(o.ShippingAddress, "null"),
		Status:          o.Status,
		StatusHistory:   history,
		CreatedAt:       o.CreatedAt,
	})
}

func rawOr(raw json.RawMessage, fallback string) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(fallback)
	}
	return raw
}

// CreatedPayload is the body of the order-created event.
type CreatedPayload struct {
	OrderID       string  `json:"orderId"`
	UserID        string  `json:"userId"`
	TotalVerified float64 `json:"totalVerified"`
	PaymentMethod string  `json:"paymentMethod"`
	ItemCount     int     `json:"itemCount"`
}
