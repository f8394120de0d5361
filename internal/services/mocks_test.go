package services

import (
	"context"
	"sync"
	"time"

	"eventhub/internal/store"
	"eventhub/models"

	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/mock"
)

// mockStore stands in for the PocketBase-backed store. Transactions run
// the callback against the same mock so expectations cover both paths.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) App() core.App { return nil }

func (m *mockStore) Event(ctx context.Context, id string) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *mockStore) TicketType(ctx context.Context, id string) (*models.TicketType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketType), args.Error(1)
}

func (m *mockStore) TicketTypesByEvent(ctx context.Context, eventID string) ([]*models.TicketType, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TicketType), args.Error(1)
}

func (m *mockStore) CreateTicketType(ctx context.Context, t *models.TicketType) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockStore) UpdateTicketType(ctx context.Context, t *models.TicketType) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockStore) DeleteTicketType(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) Reservation(ctx context.Context, id string) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *mockStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockStore) TransitionReservation(ctx context.Context, id, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *mockStore) ReservationsByUser(ctx context.Context, userID string, limit int) ([]*models.Reservation, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}

func (m *mockStore) PendingExpired(ctx context.Context, before time.Time, limit int) ([]*models.Reservation, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}

func (m *mockStore) Order(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockStore) CreateOrder(ctx context.Context, o *models.Order, items []*models.OrderItem) error {
	return m.Called(ctx, o, items).Error(0)
}

func (m *mockStore) SetOrderStatus(ctx context.Context, id, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *mockStore) OrdersByUser(ctx context.Context, userID string, limit int) ([]*models.Order, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *mockStore) OrderItems(ctx context.Context, orderID string) ([]*models.OrderItem, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OrderItem), args.Error(1)
}

// fakeNotifier records pushed notifications.
type fakeNotifier struct {
	mu        sync.Mutex
	expired   []string
	succeeded []string
	failed    []string
}

func (f *fakeNotifier) ReservationExpired(userID, reservationID string, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = append(f.expired, reservationID)
}

func (f *fakeNotifier) PaymentSucceeded(userID, orderID, reference string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.succeeded = append(f.succeeded, orderID)
}

func (f *fakeNotifier) PaymentFailed(userID, reservationID, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, reservationID)
}

// fakePublisher records emitted domain events.
type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) Publish(eventType, correlationID string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}
