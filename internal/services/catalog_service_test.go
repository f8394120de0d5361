package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"eventhub/internal/ledger"
	"eventhub/internal/status"
	"eventhub/models"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCatalogFixture(t *testing.T) (*CatalogService, *mockStore, *ledger.MemoryLedger, redismock.ClientMock) {
	t.Helper()

	st := &mockStore{}
	lg := ledger.NewMemoryLedger()
	db, redisMock := redismock.NewClientMock()

	svc := NewCatalogService(st, lg, db, 3*time.Second)
	return svc, st, lg, redisMock
}

func TestCreateTicketType_Success(t *testing.T) {
	svc, st, lg, _ := newCatalogFixture(t)
	ctx := context.Background()

	st.On("Event", ctx, "evt1").Return(&models.Event{
		ID: "evt1", OrganizerID: "org1", Status: models.EventDraft,
	}, nil)
	st.On("CreateTicketType", ctx, mock.AnythingOfType("*models.TicketType")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.TicketType).ID = "tick1"
		}).
		Return(nil)

	ticket, err := svc.CreateTicketType(ctx, CreateTicketTypeInput{
		EventID:     "evt1",
		OrganizerID: "org1",
		Name:        "VIP",
		PriceCents:  9900,
		Total:       50,
	})
	require.NoError(t, err)
	assert.Equal(t, "tick1", ticket.ID)

	// Ledger entry was seeded alongside the record.
	avail, err := lg.Availability(ctx, "tick1")
	require.NoError(t, err)
	assert.Equal(t, 50, avail.Total)
	assert.Equal(t, 50, avail.Available())
}

func TestCreateTicketType_Validation(t *testing.T) {
	svc, _, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	_, err := svc.CreateTicketType(ctx, CreateTicketTypeInput{
		EventID: "evt1", OrganizerID: "org1", PriceCents: 100, Total: 10,
	})
	assert.ErrorIs(t, err, status.ErrValidation, "missing name")

	_, err = svc.CreateTicketType(ctx, CreateTicketTypeInput{
		EventID: "evt1", OrganizerID: "org1", Name: "GA", PriceCents: -1, Total: 10,
	})
	assert.ErrorIs(t, err, status.ErrValidation, "negative price")

	_, err = svc.CreateTicketType(ctx, CreateTicketTypeInput{
		EventID: "evt1", OrganizerID: "org1", Name: "GA", PriceCents: 100, Total: 0,
	})
	assert.ErrorIs(t, err, status.ErrValidation, "zero quantity")

	start := time.Now().Add(time.Hour)
	end := start.Add(-time.Minute)
	_, err = svc.CreateTicketType(ctx, CreateTicketTypeInput{
		EventID: "evt1", OrganizerID: "org1", Name: "GA", PriceCents: 100, Total: 10,
		SaleStart: &start, SaleEnd: &end,
	})
	assert.ErrorIs(t, err, status.ErrValidation, "inverted sale window")
}

func TestCreateTicketType_NotOwner(t *testing.T) {
	svc, st, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	st.On("Event", ctx, "evt1").Return(&models.Event{
		ID: "evt1", OrganizerID: "someone-else",
	}, nil)

	_, err := svc.CreateTicketType(ctx, CreateTicketTypeInput{
		EventID: "evt1", OrganizerID: "org1", Name: "GA", PriceCents: 100, Total: 10,
	})
	assert.ErrorIs(t, err, status.ErrForbidden)
}

func TestUpdateTicketType_OmittedFieldsKeepStoredValues(t *testing.T) {
	svc, st, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	saleStart := time.Now().Add(-time.Hour)
	saleEnd := time.Now().Add(time.Hour)
	ticket := &models.TicketType{
		ID: "tick1", EventID: "evt1", Name: "GA", Description: "door sales",
		PriceCents: 2500, SaleStart: &saleStart, SaleEnd: &saleEnd,
	}
	st.On("TicketType", ctx, "tick1").Return(ticket, nil)
	st.On("Event", ctx, "evt1").Return(&models.Event{ID: "evt1", OrganizerID: "org1"}, nil)
	st.On("UpdateTicketType", ctx, ticket).Return(nil)

	name := "Early Bird"
	updated, err := svc.UpdateTicketType(ctx, UpdateTicketTypeInput{
		TicketID: "tick1", OrganizerID: "org1", Name: &name,
	})
	require.NoError(t, err)

	assert.Equal(t, "Early Bird", updated.Name)
	assert.Equal(t, "door sales", updated.Description)
	assert.Equal(t, int64(2500), updated.PriceCents)
	require.NotNil(t, updated.SaleStart)
	require.NotNil(t, updated.SaleEnd)
}

func TestUpdateTicketType_ExplicitNilClearsSaleWindow(t *testing.T) {
	svc, st, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	saleStart := time.Now().Add(-time.Hour)
	saleEnd := time.Now().Add(time.Hour)
	ticket := &models.TicketType{
		ID: "tick1", EventID: "evt1", Name: "GA", PriceCents: 2500,
		SaleStart: &saleStart, SaleEnd: &saleEnd,
	}
	st.On("TicketType", ctx, "tick1").Return(ticket, nil)
	st.On("Event", ctx, "evt1").Return(&models.Event{ID: "evt1", OrganizerID: "org1"}, nil)
	st.On("UpdateTicketType", ctx, ticket).Return(nil)

	updated, err := svc.UpdateTicketType(ctx, UpdateTicketTypeInput{
		TicketID: "tick1", OrganizerID: "org1",
		SetSaleStart: true, SetSaleEnd: true,
	})
	require.NoError(t, err)

	assert.Nil(t, updated.SaleStart)
	assert.Nil(t, updated.SaleEnd)
}

func TestUpdateTicketType_MergedWindowValidated(t *testing.T) {
	svc, st, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	saleStart := time.Now().Add(time.Hour)
	st.On("TicketType", ctx, "tick1").Return(&models.TicketType{
		ID: "tick1", EventID: "evt1", Name: "GA", PriceCents: 2500, SaleStart: &saleStart,
	}, nil)
	st.On("Event", ctx, "evt1").Return(&models.Event{ID: "evt1", OrganizerID: "org1"}, nil)

	// New end precedes the stored start.
	saleEnd := saleStart.Add(-time.Minute)
	_, err := svc.UpdateTicketType(ctx, UpdateTicketTypeInput{
		TicketID: "tick1", OrganizerID: "org1",
		SaleEnd: &saleEnd, SetSaleEnd: true,
	})
	assert.ErrorIs(t, err, status.ErrValidation)
	st.AssertNotCalled(t, "UpdateTicketType", mock.Anything, mock.Anything)
}

func TestAddCapacity(t *testing.T) {
	svc, st, lg, redisMock := newCatalogFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 10))
	require.NoError(t, lg.TryReserve(ctx, "tick1", 10))

	ticket := &models.TicketType{ID: "tick1", EventID: "evt1", Total: 10}
	st.On("TicketType", ctx, "tick1").Return(ticket, nil)
	st.On("Event", ctx, "evt1").Return(&models.Event{ID: "evt1", OrganizerID: "org1"}, nil)
	st.On("UpdateTicketType", ctx, ticket).Return(nil)

	redisMock.ExpectDel("availability:tick1").SetVal(1)

	avail, err := svc.AddCapacity(ctx, "tick1", "org1", 5)
	require.NoError(t, err)

	assert.Equal(t, 15, avail.Total)
	assert.Equal(t, 5, avail.Available())
	assert.Equal(t, 15, ticket.Total)
}

func TestDeleteTicketType_RefusedWhileHeld(t *testing.T) {
	svc, st, lg, _ := newCatalogFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 10))
	require.NoError(t, lg.TryReserve(ctx, "tick1", 1))

	st.On("TicketType", ctx, "tick1").Return(&models.TicketType{
		ID: "tick1", EventID: "evt1", Total: 10,
	}, nil)
	st.On("Event", ctx, "evt1").Return(&models.Event{ID: "evt1", OrganizerID: "org1"}, nil)

	err := svc.DeleteTicketType(ctx, "tick1", "org1")
	assert.ErrorIs(t, err, status.ErrInvalidState)
	st.AssertNotCalled(t, "DeleteTicketType", mock.Anything, mock.Anything)
}

func TestCachedAvailability_Miss(t *testing.T) {
	svc, _, lg, redisMock := newCatalogFixture(t)
	ctx := context.Background()

	require.NoError(t, lg.Init(ctx, "tick1", 10))
	require.NoError(t, lg.TryReserve(ctx, "tick1", 4))

	expected := models.Availability{TicketID: "tick1", Total: 10, Reserved: 4}
	payload, _ := json.Marshal(expected)

	redisMock.ExpectGet("availability:tick1").RedisNil()
	redisMock.ExpectSet("availability:tick1", payload, 3*time.Second).SetVal("OK")

	avail, err := svc.CachedAvailability(ctx, "tick1")
	require.NoError(t, err)
	assert.Equal(t, expected, avail)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedAvailability_Hit(t *testing.T) {
	svc, _, _, redisMock := newCatalogFixture(t)
	ctx := context.Background()

	cached := models.Availability{TicketID: "tick1", Total: 10, Reserved: 2, Sold: 3}
	payload, _ := json.Marshal(cached)
	redisMock.ExpectGet("availability:tick1").SetVal(string(payload))

	// Ledger has no entry; the hit must not reach it.
	avail, err := svc.CachedAvailability(ctx, "tick1")
	require.NoError(t, err)
	assert.Equal(t, cached, avail)
	assert.Equal(t, 5, avail.Available())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
