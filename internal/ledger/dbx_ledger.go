package ledger

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"eventhub/internal/status"
	"eventhub/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// DBLedger is the production ledger, backed by the ticket_ledger
// collection. All count mutations are single conditional UPDATE
// statements executed by the database, never read-then-write from the
// application tier.
type DBLedger struct {
	app core.App
}

func NewDBLedger(app core.App) *DBLedger {
	return &DBLedger{app: app}
}

func (l *DBLedger) Bind(app core.App) Ledger {
	return &DBLedger{app: app}
}

func (l *DBLedger) Init(ctx context.Context, ticketID string, total int) error {
	if total < 1 {
		return status.ErrValidation
	}

	collection, err := l.app.FindCollectionByNameOrId("ticket_ledger")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("ticket", ticketID)
	record.Set("total", total)
	record.Set("reserved", 0)
	record.Set("sold", 0)

	return l.app.SaveWithContext(ctx, record)
}

func (l *DBLedger) Availability(ctx context.Context, ticketID string) (models.Availability, error) {
	row := struct {
		Total    int `db:"total"`
		Reserved int `db:"reserved"`
		Sold     int `db:"sold"`
	}{}

	err := l.app.DB().
		NewQuery(`SELECT total, reserved, sold FROM ticket_ledger WHERE ticket = {:ticket}`).
		Bind(dbx.Params{"ticket": ticketID}).
		WithContext(ctx).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Availability{}, status.ErrNotFound
	}
	if err != nil {
		return models.Availability{}, err
	}

	return models.Availability{
		TicketID: ticketID,
		Total:    row.Total,
		Reserved: row.Reserved,
		Sold:     row.Sold,
	}, nil
}

func (l *DBLedger) TryReserve(ctx context.Context, ticketID string, qty int) error {
	if qty < 1 {
		return status.ErrValidation
	}

	res, err := l.app.DB().
		NewQuery(`UPDATE ticket_ledger
			SET reserved = reserved + {:qty}
			WHERE ticket = {:ticket} AND total - reserved - sold >= {:qty}`).
		Bind(dbx.Params{"ticket": ticketID, "qty": qty}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Either the entry does not exist or the guard failed.
		if _, err := l.Availability(ctx, ticketID); err != nil {
			return err
		}
		return status.ErrInsufficientInventory
	}

	return nil
}

func (l *DBLedger) ConfirmSale(ctx context.Context, ticketID string, qty int) error {
	if qty < 1 {
		return status.ErrValidation
	}

	res, err := l.app.DB().
		NewQuery(`UPDATE ticket_ledger
			SET reserved = reserved - {:qty}, sold = sold + {:qty}
			WHERE ticket = {:ticket} AND reserved >= {:qty}`).
		Bind(dbx.Params{"ticket": ticketID, "qty": qty}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		avail, err := l.Availability(ctx, ticketID)
		if err != nil {
			return err
		}
		// Confirming more than is reserved means a caller skipped the
		// reservation path. Never expected in correct operation.
		slog.Error("ledger: confirm exceeds reserved count",
			"ticket", ticketID,
			"qty", qty,
			"reserved", avail.Reserved,
			"sold", avail.Sold,
		)
		return status.ErrInvariantViolation
	}

	return nil
}

func (l *DBLedger) Release(ctx context.Context, ticketID string, qty int) error {
	if qty < 1 {
		return status.ErrValidation
	}

	res, err := l.app.DB().
		NewQuery(`UPDATE ticket_ledger
			SET reserved = MAX(reserved - {:qty}, 0)
			WHERE ticket = {:ticket}`).
		Bind(dbx.Params{"ticket": ticketID, "qty": qty}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return status.ErrNotFound
	}

	return nil
}

func (l *DBLedger) AddCapacity(ctx context.Context, ticketID string, qty int) error {
	if qty < 1 {
		return status.ErrValidation
	}

	res, err := l.app.DB().
		NewQuery(`UPDATE ticket_ledger
			SET total = total + {:qty}
			WHERE ticket = {:ticket}`).
		Bind(dbx.Params{"ticket": ticketID, "qty": qty}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return status.ErrNotFound
	}

	return nil
}

func (l *DBLedger) Delete(ctx context.Context, ticketID string) error {
	res, err := l.app.DB().
		NewQuery(`DELETE FROM ticket_ledger
			WHERE ticket = {:ticket} AND reserved = 0 AND sold = 0`).
		Bind(dbx.Params{"ticket": ticketID}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := l.Availability(ctx, ticketID); err != nil {
			return err
		}
		return status.ErrInvalidState
	}

	return nil
}
