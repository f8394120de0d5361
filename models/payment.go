package models

import (
	"time"
)

const (
	PaymentSessionPending   = "pending"
	PaymentSessionCompleted = "completed"
	PaymentSessionFailed    = "failed"
)

// PaymentSession lives in Redis with a TTL matched to the reservation
// hold. It ties a pending reservation to an expected gateway callback.
type PaymentSession struct {
	ID            string    `json:"payment_id"`
	ReservationID string    `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	AmountCents   int64     `json:"amount_cents"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// PaymentNotification is the message shape published by the payment
// gateway on the notification channel.
type PaymentNotification struct {
	PaymentID      string    `json:"payment_id"`
	Status         string    `json:"status"` // success, failed
	Method         string    `json:"method"`
	TransactionRef string    `json:"transaction_ref"`
	Timestamp      time.Time `json:"timestamp"`
}
