package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"eventhub/internal/status"
	"eventhub/models"

	"github.com/google/uuid"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
)

// PaymentNotificationChannel is where the payment gateway publishes
// transaction outcomes.
const PaymentNotificationChannel = "payment-notifications"

// OrderProcessor is what a resolved payment triggers. Implemented by
// OrderService.
type OrderProcessor interface {
	Purchase(ctx context.Context, reservationID, userID, paymentMethod, transactionRef string) (*models.Order, error)
}

// PaymentService keeps short-lived payment sessions in Redis and turns
// gateway notifications into purchases. The gateway itself is an
// external collaborator; by the time a notification arrives the payment
// is already settled.
type PaymentService struct {
	Redis      *redis.Client
	PubNub     *pubnub.PubNub
	orders     OrderProcessor
	notifier   Notifier
	sessionTTL time.Duration
}

func NewPaymentService(redisClient *redis.Client, pn *pubnub.PubNub, orders OrderProcessor, notifier Notifier, sessionTTL time.Duration) *PaymentService {
	return &PaymentService{
		Redis:      redisClient,
		PubNub:     pn,
		orders:     orders,
		notifier:   notifier,
		sessionTTL: sessionTTL,
	}
}

// CreateSession opens a payment window for a pending reservation. The
// session never outlives the hold it pays for.
func (s *PaymentService) CreateSession(ctx context.Context, r *models.Reservation, amountCents int64) (*models.PaymentSession, error) {
	if r.Status != models.ReservationPending {
		return nil, fmt.Errorf("%w: reservation is %s", status.ErrInvalidState, r.Status)
	}

	now := time.Now()
	ttl := s.sessionTTL
	if remaining := r.ExpiresAt.Sub(now); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: hold has expired", status.ErrInvalidState)
	}

	session := &models.PaymentSession{
		ID:            uuid.NewString(),
		ReservationID: r.ID,
		UserID:        r.UserID,
		AmountCents:   amountCents,
		Status:        models.PaymentSessionPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}

	key := paymentKey(session.ID)
	err := s.Redis.HSet(ctx, key, map[string]any{
		"reservation_id": session.ReservationID,
		"user_id":        session.UserID,
		"amount_cents":   session.AmountCents,
		"status":         session.Status,
		"created_at":     session.CreatedAt.Unix(),
		"expires_at":     session.ExpiresAt.Unix(),
	}).Err()
	if err != nil {
		return nil, err
	}
	s.Redis.Expire(ctx, key, ttl)

	return session, nil
}

func (s *PaymentService) Session(ctx context.Context, paymentID string) (*models.PaymentSession, error) {
	data, err := s.Redis.HGetAll(ctx, paymentKey(paymentID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, status.ErrNotFound
	}

	amount, _ := strconv.ParseInt(data["amount_cents"], 10, 64)
	createdAt, _ := strconv.ParseInt(data["created_at"], 10, 64)
	expiresAt, _ := strconv.ParseInt(data["expires_at"], 10, 64)

	return &models.PaymentSession{
		ID:            paymentID,
		ReservationID: data["reservation_id"],
		UserID:        data["user_id"],
		AmountCents:   amount,
		Status:        data["status"],
		CreatedAt:     time.Unix(createdAt, 0),
		ExpiresAt:     time.Unix(expiresAt, 0),
	}, nil
}

// SubscribeToPaymentNotifications blocks on the gateway channel and
// handles each outcome message. Run from a goroutine at startup.
func (s *PaymentService) SubscribeToPaymentNotifications() {
	if s.PubNub == nil {
		return
	}

	listener := pubnub.NewListener()
	s.PubNub.AddListener(listener)
	s.PubNub.Subscribe().
		Channels([]string{PaymentNotificationChannel}).
		Execute()

	for message := range listener.Message {
		go s.HandlePaymentNotification(message.Message)
	}
}

// HandlePaymentNotification resolves one gateway outcome against its
// payment session.
func (s *PaymentService) HandlePaymentNotification(raw any) {
	data, ok := raw.(map[string]interface{})
	if !ok {
		return
	}

	jsonData, _ := json.Marshal(data)
	var notification models.PaymentNotification
	if err := json.Unmarshal(jsonData, &notification); err != nil {
		slog.Error("failed to parse payment notification", "error", err)
		return
	}

	ctx := context.Background()

	session, err := s.Session(ctx, notification.PaymentID)
	if err != nil {
		slog.Warn("payment notification without session",
			"payment", notification.PaymentID, "error", err)
		return
	}
	if session.Status != models.PaymentSessionPending {
		return
	}

	key := paymentKey(notification.PaymentID)

	if notification.Status != "success" {
		s.Redis.HSet(ctx, key, "status", models.PaymentSessionFailed)
		if s.notifier != nil {
			s.notifier.PaymentFailed(session.UserID, session.ReservationID, notification.Status)
		}
		return
	}

	order, err := s.orders.Purchase(ctx, session.ReservationID, session.UserID,
		notification.Method, notification.TransactionRef)
	if err != nil {
		slog.Error("purchase failed after payment success",
			"payment", notification.PaymentID,
			"reservation", session.ReservationID,
			"error", err)
		s.Redis.HSet(ctx, key, "status", models.PaymentSessionFailed)
		if s.notifier != nil {
			s.notifier.PaymentFailed(session.UserID, session.ReservationID, "fulfilment_failed")
		}
		return
	}

	s.Redis.HSet(ctx, key, "status", models.PaymentSessionCompleted, "order_id", order.ID)
}

func paymentKey(paymentID string) string {
	return "payment:" + paymentID
}
