// Package ledger owns the authoritative total/reserved/sold counters per
// ticket type. It is the only code allowed to mutate availability, and
// every mutation is a single atomic compare-and-update so that two
// concurrent reservations can never jointly oversell.
package ledger

import (
	"context"

	"eventhub/models"

	"github.com/pocketbase/pocketbase/core"
)

type Ledger interface {
	// Bind returns a ledger running against the given app, so callers
	// can join a PocketBase transaction (app.RunInTransaction).
	Bind(app core.App) Ledger

	// Init creates a zero-initialized entry for a new ticket type.
	Init(ctx context.Context, ticketID string, total int) error

	Availability(ctx context.Context, ticketID string) (models.Availability, error)

	// TryReserve atomically checks available >= qty and increments
	// reserved. Fails with status.ErrInsufficientInventory when the
	// check does not hold.
	TryReserve(ctx context.Context, ticketID string, qty int) error

	// ConfirmSale moves qty from reserved to sold. Called only by the
	// order processor for a held reservation; reserved < qty means a
	// caller bug and surfaces as status.ErrInvariantViolation.
	ConfirmSale(ctx context.Context, ticketID string, qty int) error

	// Release returns qty to the pool on expiry or cancellation,
	// flooring reserved at zero.
	Release(ctx context.Context, ticketID string, qty int) error

	// AddCapacity grows total. The only way capacity ever increases;
	// sales never touch total.
	AddCapacity(ctx context.Context, ticketID string, qty int) error

	// Delete removes an entry that has no reserved or sold units.
	Delete(ctx context.Context, ticketID string) error
}
