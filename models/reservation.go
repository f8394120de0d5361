package models

import (
	"time"
)

const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationExpired   = "expired"
	ReservationCancelled = "cancelled"
)

// Reservation is a time-boxed hold on ticket inventory. pending is the
// only non-terminal status: confirm, cancel and expire all end the
// lifecycle and no transition leaves a terminal state.
type Reservation struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	UserID    string    `json:"user_id,omitempty"` // empty for guest holds
	Quantity  int       `json:"quantity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (r *Reservation) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Terminal reports whether the reservation reached an end state.
func (r *Reservation) Terminal() bool {
	return r.Status != ReservationPending
}
