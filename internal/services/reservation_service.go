package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventhub/internal/events"
	"eventhub/internal/ledger"
	"eventhub/internal/status"
	"eventhub/internal/store"
	"eventhub/models"
	"eventhub/monitoring"

	"github.com/redis/go-redis/v9"
)

const sweepLockKey = "lock:reservation_sweep"

// ReservationService creates time-boxed holds against the ledger,
// expires them, and promotes them to confirmed on payment. It is the
// only owner of reservation status transitions.
type ReservationService struct {
	store     store.Store
	ledger    ledger.Ledger
	redis     *redis.Client
	notifier  Notifier
	publisher EventPublisher

	ttl           time.Duration
	sweepInterval time.Duration
	sweepBatch    int
}

func NewReservationService(
	st store.Store,
	lg ledger.Ledger,
	redisClient *redis.Client,
	notifier Notifier,
	publisher EventPublisher,
	ttl, sweepInterval time.Duration,
	sweepBatch int,
) *ReservationService {
	return &ReservationService{
		store:         st,
		ledger:        lg,
		redis:         redisClient,
		notifier:      notifier,
		publisher:     publisher,
		ttl:           ttl,
		sweepInterval: sweepInterval,
		sweepBatch:    sweepBatch,
	}
}

// Reserve validates the sale window, takes inventory atomically, then
// records the hold. The ledger increment happens first so two
// concurrent calls can never both pass the availability check; a failed
// record insert releases the units again.
func (s *ReservationService) Reserve(ctx context.Context, ticketID string, quantity int, userID string) (*models.Reservation, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", status.ErrValidation)
	}

	t, err := s.store.TicketType(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	event, err := s.store.Event(ctx, t.EventID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if event.Status != models.EventPublished {
		return nil, fmt.Errorf("%w: event is not open for sale", status.ErrValidation)
	}
	if !t.OnSale(now) {
		return nil, fmt.Errorf("%w: ticket is not on sale", status.ErrValidation)
	}

	if err := s.ledger.TryReserve(ctx, ticketID, quantity); err != nil {
		if errors.Is(err, status.ErrInsufficientInventory) {
			monitoring.TrackInsufficientInventory()
			monitoring.TrackReservation("reserve", "sold_out")
		}
		return nil, err
	}

	r := &models.Reservation{
		TicketID:  ticketID,
		UserID:    userID,
		Quantity:  quantity,
		Status:    models.ReservationPending,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.CreateReservation(ctx, r); err != nil {
		if rerr := s.ledger.Release(ctx, ticketID, quantity); rerr != nil {
			slog.Error("failed to release inventory after reservation insert error",
				"ticket", ticketID, "quantity", quantity, "error", rerr)
		}
		return nil, err
	}

	monitoring.TrackReservation("reserve", "ok")
	return r, nil
}

// Cancel releases a pending hold at the holder's request.
func (s *ReservationService) Cancel(ctx context.Context, reservationID, userID string) error {
	r, err := s.store.Reservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if r.UserID != userID {
		return status.ErrForbidden
	}

	err = s.store.TransitionReservation(ctx, reservationID,
		models.ReservationPending, models.ReservationCancelled)
	if err != nil {
		return err
	}

	if err := s.ledger.Release(ctx, r.TicketID, r.Quantity); err != nil {
		slog.Error("failed to release inventory for cancelled reservation",
			"reservation", reservationID, "error", err)
		return err
	}

	monitoring.TrackReservation("cancel", "ok")
	return nil
}

// Expire transitions a pending reservation past its deadline to
// expired and releases the hold. Idempotent: terminal reservations and
// holds not yet due are a no-op.
func (s *ReservationService) Expire(ctx context.Context, reservationID string) error {
	r, err := s.store.Reservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if r.Terminal() {
		return nil
	}
	if !r.Expired(time.Now()) {
		return nil
	}

	err = s.store.TransitionReservation(ctx, reservationID,
		models.ReservationPending, models.ReservationExpired)
	if errors.Is(err, status.ErrInvalidState) {
		// Lost the race against a concurrent confirm/cancel/expire,
		// which already settled the ledger.
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.ledger.Release(ctx, r.TicketID, r.Quantity); err != nil {
		slog.Error("failed to release inventory for expired reservation",
			"reservation", reservationID, "error", err)
		return err
	}

	if s.notifier != nil {
		s.notifier.ReservationExpired(r.UserID, r.ID, r.Quantity)
	}
	if s.publisher != nil {
		s.publisher.Publish(events.TypeReservationExpired, r.ID, events.ReservationExpiredPayload{
			ReservationID: r.ID,
			TicketID:      r.TicketID,
			Quantity:      r.Quantity,
		})
	}

	monitoring.TrackReservation("expire", "ok")
	return nil
}

// Confirm promotes a pending, unexpired hold; only the order processor
// calls it. A payment landing after expiry is refused, never silently
// accepted.
func (s *ReservationService) Confirm(ctx context.Context, reservationID string) (*models.Reservation, error) {
	r, err := s.store.Reservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.Terminal() {
		return nil, fmt.Errorf("%w: reservation is %s", status.ErrInvalidState, r.Status)
	}
	if r.Expired(time.Now()) {
		if err := s.Expire(ctx, reservationID); err != nil {
			slog.Error("failed to expire stale reservation during confirm",
				"reservation", reservationID, "error", err)
		}
		return nil, fmt.Errorf("%w: hold has expired", status.ErrInvalidState)
	}

	err = s.store.TransitionReservation(ctx, reservationID,
		models.ReservationPending, models.ReservationConfirmed)
	if err != nil {
		return nil, err
	}

	r.Status = models.ReservationConfirmed
	monitoring.TrackReservation("confirm", "ok")
	return r, nil
}

func (s *ReservationService) Reservation(ctx context.Context, reservationID string) (*models.Reservation, error) {
	return s.store.Reservation(ctx, reservationID)
}

func (s *ReservationService) ReservationsByUser(ctx context.Context, userID string) ([]*models.Reservation, error) {
	return s.store.ReservationsByUser(ctx, userID, 50)
}

// SweepExpired expires every pending reservation past its deadline and
// returns how many it processed. Exactness of timing is not required,
// only that held inventory is eventually released.
func (s *ReservationService) SweepExpired(ctx context.Context) (int, error) {
	started := time.Now()

	due, err := s.store.PendingExpired(ctx, started, s.sweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, r := range due {
		if err := s.Expire(ctx, r.ID); err != nil {
			slog.Error("sweep: failed to expire reservation",
				"reservation", r.ID, "error", err)
			continue
		}
		expired++
	}

	monitoring.TrackSweep(time.Since(started), expired)
	return expired, nil
}

// RunSweeper drives SweepExpired on a fixed interval until ctx is
// cancelled. A Redis lock keeps multiple instances from sweeping the
// same batch; losing the lock just means another instance is on it.
func (s *ReservationService) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	slog.Info("reservation sweeper started", "interval", s.sweepInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("reservation sweeper stopped")
			return
		case <-ticker.C:
			s.sweepTick(ctx)
		}
	}
}

func (s *ReservationService) sweepTick(ctx context.Context) {
	if s.redis != nil {
		ok, err := s.redis.SetNX(ctx, sweepLockKey, "1", 2*s.sweepInterval).Result()
		if err != nil {
			slog.Warn("sweep lock unavailable, sweeping anyway", "error", err)
		} else if !ok {
			return
		} else {
			defer s.redis.Del(ctx, sweepLockKey)
		}
	}

	expired, err := s.SweepExpired(ctx)
	if err != nil {
		slog.Error("reservation sweep failed", "error", err)
		return
	}
	if expired > 0 {
		slog.Info("reservation sweep released expired holds", "count", expired)
	}
}
