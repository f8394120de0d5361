// Package store is the persistence port for the ticketing domain.
// Services depend on the interface; the PocketBase implementation in
// pb.go is the only place that knows about collections and records.
package store

import (
	"context"
	"time"

	"eventhub/models"

	"github.com/pocketbase/pocketbase/core"
)

type Store interface {
	// RunInTransaction executes fn against a transactional copy of the
	// store. The ledger joins the same transaction via tx.App().
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error
	App() core.App

	Event(ctx context.Context, id string) (*models.Event, error)

	TicketType(ctx context.Context, id string) (*models.TicketType, error)
	TicketTypesByEvent(ctx context.Context, eventID string) ([]*models.TicketType, error)
	CreateTicketType(ctx context.Context, t *models.TicketType) error
	UpdateTicketType(ctx context.Context, t *models.TicketType) error
	DeleteTicketType(ctx context.Context, id string) error

	Reservation(ctx context.Context, id string) (*models.Reservation, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	// TransitionReservation applies from -> to as one conditional
	// update. status.ErrInvalidState when the row is no longer in the
	// from status, so concurrent confirm/cancel/expire races collapse
	// to exactly one winner.
	TransitionReservation(ctx context.Context, id, from, to string) error
	ReservationsByUser(ctx context.Context, userID string, limit int) ([]*models.Reservation, error)
	PendingExpired(ctx context.Context, before time.Time, limit int) ([]*models.Reservation, error)

	Order(ctx context.Context, id string) (*models.Order, error)
	CreateOrder(ctx context.Context, o *models.Order, items []*models.OrderItem) error
	SetOrderStatus(ctx context.Context, id, from, to string) error
	OrdersByUser(ctx context.Context, userID string, limit int) ([]*models.Order, error)
	OrderItems(ctx context.Context, orderID string) ([]*models.OrderItem, error)
}
