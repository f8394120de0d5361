package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"eventhub/internal/status"
	"eventhub/models"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrderProcessor struct {
	mock.Mock
}

func (m *mockOrderProcessor) Purchase(ctx context.Context, reservationID, userID, paymentMethod, transactionRef string) (*models.Order, error) {
	args := m.Called(ctx, reservationID, userID, paymentMethod, transactionRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func sessionFields(status string, expiresAt time.Time) map[string]string {
	return map[string]string{
		"reservation_id": "res1",
		"user_id":        "user1",
		"amount_cents":   "5000",
		"status":         status,
		"created_at":     strconv.FormatInt(time.Now().Unix(), 10),
		"expires_at":     strconv.FormatInt(expiresAt.Unix(), 10),
	}
}

func TestCreateSession_RefusesNonPendingReservation(t *testing.T) {
	svc := NewPaymentService(nil, nil, nil, nil, 10*time.Minute)

	_, err := svc.CreateSession(context.Background(), &models.Reservation{
		ID: "res1", Status: models.ReservationCancelled,
		ExpiresAt: time.Now().Add(time.Minute),
	}, 5000)
	assert.ErrorIs(t, err, status.ErrInvalidState)
}

func TestCreateSession_RefusesExpiredHold(t *testing.T) {
	svc := NewPaymentService(nil, nil, nil, nil, 10*time.Minute)

	_, err := svc.CreateSession(context.Background(), &models.Reservation{
		ID: "res1", Status: models.ReservationPending,
		ExpiresAt: time.Now().Add(-time.Second),
	}, 5000)
	assert.ErrorIs(t, err, status.ErrInvalidState)
}

func TestSession_NotFound(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	svc := NewPaymentService(db, nil, nil, nil, 10*time.Minute)

	redisMock.ExpectHGetAll("payment:missing").SetVal(map[string]string{})

	_, err := svc.Session(context.Background(), "missing")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestSession_Parse(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	svc := NewPaymentService(db, nil, nil, nil, 10*time.Minute)

	expires := time.Now().Add(5 * time.Minute)
	redisMock.ExpectHGetAll("payment:pay1").SetVal(sessionFields("pending", expires))

	session, err := svc.Session(context.Background(), "pay1")
	require.NoError(t, err)

	assert.Equal(t, "pay1", session.ID)
	assert.Equal(t, "res1", session.ReservationID)
	assert.Equal(t, "user1", session.UserID)
	assert.Equal(t, int64(5000), session.AmountCents)
	assert.Equal(t, models.PaymentSessionPending, session.Status)
	assert.Equal(t, expires.Unix(), session.ExpiresAt.Unix())
}

func TestHandlePaymentNotification_SuccessCompletesPurchase(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	orders := &mockOrderProcessor{}
	svc := NewPaymentService(db, nil, orders, nil, 10*time.Minute)

	redisMock.ExpectHGetAll("payment:pay1").
		SetVal(sessionFields("pending", time.Now().Add(5*time.Minute)))
	redisMock.ExpectHSet("payment:pay1", "status", models.PaymentSessionCompleted, "order_id", "ord1").
		SetVal(1)

	orders.On("Purchase", mock.Anything, "res1", "user1", "qr", "TX-9").
		Return(&models.Order{ID: "ord1", PaymentStatus: models.OrderPaid}, nil)

	svc.HandlePaymentNotification(map[string]interface{}{
		"payment_id":      "pay1",
		"status":          "success",
		"method":          "qr",
		"transaction_ref": "TX-9",
	})

	orders.AssertExpectations(t)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHandlePaymentNotification_FailureMarksSession(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	orders := &mockOrderProcessor{}
	notifier := &fakeNotifier{}
	svc := NewPaymentService(db, nil, orders, notifier, 10*time.Minute)

	redisMock.ExpectHGetAll("payment:pay1").
		SetVal(sessionFields("pending", time.Now().Add(5*time.Minute)))
	redisMock.ExpectHSet("payment:pay1", "status", models.PaymentSessionFailed).SetVal(1)

	svc.HandlePaymentNotification(map[string]interface{}{
		"payment_id": "pay1",
		"status":     "failed",
		"method":     "qr",
	})

	orders.AssertNotCalled(t, "Purchase",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Contains(t, notifier.failed, "res1")
}

func TestHandlePaymentNotification_AlreadySettledIsNoop(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	orders := &mockOrderProcessor{}
	svc := NewPaymentService(db, nil, orders, nil, 10*time.Minute)

	redisMock.ExpectHGetAll("payment:pay1").
		SetVal(sessionFields("completed", time.Now().Add(5*time.Minute)))

	svc.HandlePaymentNotification(map[string]interface{}{
		"payment_id": "pay1",
		"status":     "success",
		"method":     "qr",
	})

	orders.AssertNotCalled(t, "Purchase",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlePaymentNotification_GarbageIsIgnored(t *testing.T) {
	svc := NewPaymentService(nil, nil, nil, nil, 10*time.Minute)

	// Neither of these should panic or touch any dependency.
	svc.HandlePaymentNotification("not a map")
	svc.HandlePaymentNotification(nil)
}
