package models

import (
	"time"
)

const (
	OrderPending  = "pending"
	OrderPaid     = "paid"
	OrderFailed   = "failed"
	OrderRefunded = "refunded"
)

// Order is immutable once paid except for the paid -> refunded transition.
type Order struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Reference      string    `json:"reference"`
	TotalCents     int64     `json:"total_cents"`
	PaymentStatus  string    `json:"payment_status"`
	PaymentMethod  string    `json:"payment_method,omitempty"`
	TransactionRef string    `json:"transaction_ref,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// OrderItem captures the unit price at purchase time. Later ticket price
// changes never touch historical orders.
type OrderItem struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	TicketID   string `json:"ticket_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}
