package models

import (
	"time"
)

// TicketType is a purchasable category of admission for an event
// (e.g. "VIP", "General"). Quantity is never mutated by sales; the
// ledger entry owns the running counts.
type TicketType struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	PriceCents  int64      `json:"price_cents"`
	Total       int        `json:"total_quantity"`
	SaleStart   *time.Time `json:"sale_start,omitempty"`
	SaleEnd     *time.Time `json:"sale_end,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// OnSale reports whether the sale window is open at t. Absent bounds
// mean always on sale; the event-published check is the caller's job.
func (t *TicketType) OnSale(now time.Time) bool {
	if t.SaleStart != nil && now.Before(*t.SaleStart) {
		return false
	}
	if t.SaleEnd != nil && now.After(*t.SaleEnd) {
		return false
	}
	return true
}

// Availability is the ledger view for one ticket type.
// Invariant: Reserved >= 0, Sold >= 0, Reserved+Sold <= Total.
type Availability struct {
	TicketID string `json:"ticket_id"`
	Total    int    `json:"total"`
	Reserved int    `json:"reserved"`
	Sold     int    `json:"sold"`
}

func (a Availability) Available() int {
	return a.Total - a.Reserved - a.Sold
}
