package ledger

import (
	"context"
	"log/slog"
	"sync"

	"eventhub/internal/status"
	"eventhub/models"

	"github.com/pocketbase/pocketbase/core"
)

type memoryEntry struct {
	total    int
	reserved int
	sold     int
}

// MemoryLedger keeps the counters in process memory behind a mutex.
// Same semantics as DBLedger; used in tests and single-node dev runs.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]*memoryEntry)}
}

func (l *MemoryLedger) Bind(_ core.App) Ledger {
	return l
}

func (l *MemoryLedger) Init(_ context.Context, ticketID string, total int) error {
	if total < 1 {
		return status.ErrValidation
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[ticketID]; ok {
		return status.ErrInvalidState
	}
	l.entries[ticketID] = &memoryEntry{total: total}
	return nil
}

func (l *MemoryLedger) Availability(_ context.Context, ticketID string) (models.Availability, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[ticketID]
	if !ok {
		return models.Availability{}, status.ErrNotFound
	}
	return models.Availability{
		TicketID: ticketID,
		Total:    e.total,
		Reserved: e.reserved,
		Sold:     e.sold,
	}, nil
}

func (l *MemoryLedger) TryReserve(_ context.Context, ticketID string, qty int) error {
	if qty < 1 {
		return status.ErrValidation
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[ticketID]
	if !ok {
		return status.ErrNotFound
	}
	if e.total-e.reserved-e.sold < qty {
		return status.ErrInsufficientInventory
	}
	e.reserved += qty
	return nil
}

func (l *MemoryLedger) ConfirmSale(_ context.Context, ticketID string, qty int) error {
	if qty < 1 {
		return status.ErrValidation
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[ticketID]
	if !ok {
		return status.ErrNotFound
	}
	if e.reserved < qty {
		slog.Error("ledger: confirm exceeds reserved count",
			"ticket", ticketID,
			"qty", qty,
			"reserved", e.reserved,
			"sold", e.sold,
		)
		return status.ErrInvariantViolation
	}
	e.reserved -= qty
	e.sold += qty
	return nil
}

func (l *MemoryLedger) Release(_ context.Context, ticketID string, qty int) error {
	if qty < 1 {
		return status.ErrValidation
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[ticketID]
	if !ok {
		return status.ErrNotFound
	}
	e.reserved -= qty
	if e.reserved < 0 {
		e.reserved = 0
	}
	return nil
}

func (l *MemoryLedger) AddCapacity(_ context.Context, ticketID string, qty int) error {
	if qty < 1 {
		return status.ErrValidation
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[ticketID]
	if !ok {
		return status.ErrNotFound
	}
	e.total += qty
	return nil
}

func (l *MemoryLedger) Delete(_ context.Context, ticketID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[ticketID]
	if !ok {
		return status.ErrNotFound
	}
	if e.reserved != 0 || e.sold != 0 {
		return status.ErrInvalidState
	}
	delete(l.entries, ticketID)
	return nil
}
