package services

import (
	"context"
	"testing"
	"time"

	"eventhub/internal/ledger"
	"eventhub/internal/status"
	"eventhub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newReservationFixture(t *testing.T) (*ReservationService, *mockStore, *ledger.MemoryLedger, *fakeNotifier, *fakePublisher) {
	t.Helper()

	st := &mockStore{}
	lg := ledger.NewMemoryLedger()
	notifier := &fakeNotifier{}
	publisher := &fakePublisher{}

	svc := NewReservationService(st, lg, nil, notifier, publisher,
		15*time.Minute, time.Minute, 200)
	return svc, st, lg, notifier, publisher
}

func publishedEvent() *models.Event {
	return &models.Event{ID: "evt1", OrganizerID: "org1", Status: models.EventPublished}
}

func onSaleTicket() *models.TicketType {
	return &models.TicketType{ID: "tick1", EventID: "evt1", PriceCents: 2500, Total: 10}
}

func TestReserve_Success(t *testing.T) {
	svc, st, lg, _, _ := newReservationFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 10))

	st.On("TicketType", ctx, "tick1").Return(onSaleTicket(), nil)
	st.On("Event", ctx, "evt1").Return(publishedEvent(), nil)
	st.On("CreateReservation", ctx, mock.AnythingOfType("*models.Reservation")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Reservation).ID = "res1"
		}).
		Return(nil)

	r, err := svc.Reserve(ctx, "tick1", 4, "user1")
	require.NoError(t, err)

	assert.Equal(t, "res1", r.ID)
	assert.Equal(t, models.ReservationPending, r.Status)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), r.ExpiresAt, 2*time.Second)

	avail, _ := lg.Availability(ctx, "tick1")
	assert.Equal(t, 4, avail.Reserved)
	assert.Equal(t, 6, avail.Available())
}

func TestReserve_InvalidQuantity(t *testing.T) {
	svc, _, _, _, _ := newReservationFixture(t)

	_, err := svc.Reserve(context.Background(), "tick1", 0, "user1")
	assert.ErrorIs(t, err, status.ErrValidation)
}

func TestReserve_EventNotPublished(t *testing.T) {
	svc, st, lg, _, _ := newReservationFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 10))

	draft := publishedEvent()
	draft.Status = models.EventDraft
	st.On("TicketType", ctx, "tick1").Return(onSaleTicket(), nil)
	st.On("Event", ctx, "evt1").Return(draft, nil)

	_, err := svc.Reserve(ctx, "tick1", 1, "user1")
	assert.ErrorIs(t, err, status.ErrValidation)

	// No inventory was taken.
	avail, _ := lg.Availability(ctx, "tick1")
	assert.Equal(t, 0, avail.Reserved)
}

func TestReserve_OutsideSaleWindow(t *testing.T) {
	svc, st, lg, _, _ := newReservationFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 10))

	future := time.Now().Add(time.Hour)
	ticket := onSaleTicket()
	ticket.SaleStart = &future
	st.On("TicketType", ctx, "tick1").Return(ticket, nil)
	st.On("Event", ctx, "evt1").Return(publishedEvent(), nil)

	_, err := svc.Reserve(ctx, "tick1", 1, "user1")
	assert.ErrorIs(t, err, status.ErrValidation)
}

func TestReserve_InsufficientInventory(t *testing.T) {
	svc, st, lg, _, _ := newReservationFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 2))

	st.On("TicketType", ctx, "tick1").Return(onSaleTicket(), nil)
	st.On("Event", ctx, "evt1").Return(publishedEvent(), nil)

	_, err := svc.Reserve(ctx, "tick1", 3, "user1")
	assert.ErrorIs(t, err, status.ErrInsufficientInventory)

	st.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
}

func TestReserve_InsertFailureReleasesInventory(t *testing.T) {
	svc, st, lg, _, _ := newReservationFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 10))

	st.On("TicketType", ctx, "tick1").Return(onSaleTicket(), nil)
	st.On("Event", ctx, "evt1").Return(publishedEvent(), nil)
	st.On("CreateReservation", ctx, mock.Anything).Return(status.ErrStorageUnavailable)

	_, err := svc.Reserve(ctx, "tick1", 4, "user1")
	require.Error(t, err)

	// The compensating release returned the units.
	avail, _ := lg.Availability(ctx, "tick1")
	assert.Equal(t, 0, avail.Reserved)
	assert.Equal(t, 10, avail.Available())
}

func TestCancel_Success(t *testing.T) {
	svc, st, lg, _, _ := newReservationFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 10))
	require.NoError(t, lg.TryReserve(ctx, "tick1", 2))

	st.On("Reservation", ctx, "res1").Return(&models.Reservation{
		ID: "res1", TicketID: "tick1", UserID: "user1", Quantity: 2,
		Status: models.ReservationPending, ExpiresAt: time.Now().Add(time.Minute),
	}, nil)
	st.On("TransitionReservation", ctx, "res1",
		models.ReservationPending, models.ReservationCancelled).Return(nil)

	require.NoError(t, svc.Cancel(ctx, "res1", "user1"))

	avail, _ := lg.Availability(ctx, "tick1")
	assert.Equal(t, 0, avail.Reserved)
}

func TestCancel_WrongHolder(t *testing.T) {
	svc, st, _, _, _ := newReservationFixture(t)
	ctx := context.Background()

	st.On("Reservation", ctx, "res1").Return(&models.Reservation{
		ID: "res1", TicketID: "tick1", UserID: "user1", Quantity: 2,
		Status: models.ReservationPending,
	}, nil)

	err := svc.Cancel(ctx, "res1", "someone-else")
	assert.ErrorIs(t, err, status.ErrForbidden)
	st.AssertNotCalled(t, "TransitionReservation",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExpire_ReleasesAndNotifies(t *testing.T) {
	svc, st, lg, notifier, publisher := newReservationFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 10))
	require.NoError(t, lg.TryReserve(ctx, "tick1", 3))

	st.On("Reservation", ctx, "res1").Return(&models.Reservation{
		ID: "res1", TicketID: "tick1", UserID: "user1", Quantity: 3,
		Status: models.ReservationPending, ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)
	st.On("TransitionReservation", ctx, "res1",
		models.ReservationPending, models.ReservationExpired).Return(nil)

	require.NoError(t, svc.Expire(ctx, "res1"))

	avail, _ := lg.Availability(ctx, "tick1")
	assert.Equal(t, 0, avail.Reserved)
	assert.Contains(t, notifier.expired, "res1")
	assert.Contains(t, publisher.published(), "reservation.expired")
}

func TestExpire_TerminalIsNoop(t *testing.T) {
	svc, st, _, _, _ := newReservationFixture(t)
	ctx := context.Background()

	st.On("Reservation", ctx, "res1").Return(&models.Reservation{
		ID: "res1", TicketID: "tick1", Quantity: 3,
		Status: models.ReservationCancelled, ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)

	require.NoError(t, svc.Expire(ctx, "res1"))
	st.AssertNotCalled(t, "TransitionReservation",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExpire_NotYetDueIsNoop(t *testing.T) {
	svc, st, _, _, _ := newReservationFixture(t)
	ctx := context.Background()

	st.On("Reservation", ctx, "res1").Return(&models.Reservation{
		ID: "res1", TicketID: "tick1", Quantity: 3,
		Status: models.ReservationPending, ExpiresAt: time.Now().Add(time.Minute),
	}, nil)

	require.NoError(t, svc.Expire(ctx, "res1"))
	st.AssertNotCalled(t, "TransitionReservation",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExpire_LostRaceIsNoop(t *testing.T) {
	svc, st, lg, _, _ := newReservationFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 10))
	require.NoError(t, lg.TryReserve(ctx, "tick1", 3))

	st.On("Reservation", ctx, "res1").Return(&models.Reservation{
		ID: "res1", TicketID: "tick1", Quantity: 3,
		Status: models.ReservationPending, ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)
	st.On("TransitionReservation", ctx, "res1",
		models.ReservationPending, models.ReservationExpired).
		Return(status.ErrInvalidState)

	require.NoError(t, svc.Expire(ctx, "res1"))

	// The winning transition settles the ledger, not this call.
	avail, _ := lg.Availability(ctx, "tick1")
	assert.Equal(t, 3, avail.Reserved)
}

func TestConfirm_ExpiredHoldRefused(t *testing.T) {
	svc, st, lg, _, _ := newReservationFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 10))
	require.NoError(t, lg.TryReserve(ctx, "tick1", 2))

	st.On("Reservation", ctx, "res1").Return(&models.Reservation{
		ID: "res1", TicketID: "tick1", UserID: "user1", Quantity: 2,
		Status: models.ReservationPending, ExpiresAt: time.Now().Add(-time.Second),
	}, nil)
	st.On("TransitionReservation", ctx, "res1",
		models.ReservationPending, models.ReservationExpired).Return(nil)

	_, err := svc.Confirm(ctx, "res1")
	assert.ErrorIs(t, err, status.ErrInvalidState)

	// The stale hold was expired on the spot.
	avail, _ := lg.Availability(ctx, "tick1")
	assert.Equal(t, 0, avail.Reserved)
	assert.Equal(t, 0, avail.Sold)
}

func TestConfirm_Success(t *testing.T) {
	svc, st, _, _, _ := newReservationFixture(t)
	ctx := context.Background()

	st.On("Reservation", ctx, "res1").Return(&models.Reservation{
		ID: "res1", TicketID: "tick1", UserID: "user1", Quantity: 2,
		Status: models.ReservationPending, ExpiresAt: time.Now().Add(time.Minute),
	}, nil)
	st.On("TransitionReservation", ctx, "res1",
		models.ReservationPending, models.ReservationConfirmed).Return(nil)

	r, err := svc.Confirm(ctx, "res1")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, r.Status)
}

func TestSweepExpired(t *testing.T) {
	svc, st, lg, _, _ := newReservationFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 10))
	require.NoError(t, lg.TryReserve(ctx, "tick1", 5))

	stale := []*models.Reservation{
		{ID: "res1", TicketID: "tick1", Quantity: 2, Status: models.ReservationPending, ExpiresAt: time.Now().Add(-time.Minute)},
		{ID: "res2", TicketID: "tick1", Quantity: 3, Status: models.ReservationPending, ExpiresAt: time.Now().Add(-time.Minute)},
	}
	st.On("PendingExpired", ctx, mock.AnythingOfType("time.Time"), 200).Return(stale, nil)
	st.On("Reservation", ctx, "res1").Return(stale[0], nil)
	st.On("Reservation", ctx, "res2").Return(stale[1], nil)
	st.On("TransitionReservation", ctx, mock.Anything,
		models.ReservationPending, models.ReservationExpired).Return(nil)

	expired, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	avail, _ := lg.Availability(ctx, "tick1")
	assert.Equal(t, 0, avail.Reserved)
	assert.Equal(t, 10, avail.Available())
}
