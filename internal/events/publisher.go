// Package events streams order lifecycle events to Kafka for downstream
// consumers (fulfilment, analytics). The stream is best-effort: a dead
// broker must never block a sale.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	TypeOrderPaid          = "order.paid"
	TypeOrderRefunded      = "order.refunded"
	TypeReservationExpired = "reservation.expired"
)

// Envelope wraps every published payload. CorrelationID is the order or
// reservation id, doubling as the partition key so events for one
// aggregate stay ordered.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

type Publisher struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	stopped atomic.Bool
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:   make(chan kafka.Message, 256),
		closeCh: make(chan struct{}),
	}
}

// Start runs the writer loop until ctx is cancelled, then flushes the
// remaining inbox before closing the writer. The inbox itself is never
// closed; late producers still racing a shutdown get their events
// dropped, not a panic.
func (p *Publisher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.stopped.Store(true)
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						_ = p.w.Close()
						close(p.closeCh)
						return
					}
				}
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Publisher) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		slog.Warn("kafka publish failed", "topic", p.w.Topic, "error", err)
	}
}

// Publish enqueues an event without blocking the caller; a full inbox
// drops the event with a warning rather than stalling a purchase.
func (p *Publisher) Publish(eventType, correlationID string, payload any) {
	if p.stopped.Load() {
		slog.Warn("kafka publisher stopped, dropping event", "type", eventType, "correlation_id", correlationID)
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("kafka payload marshal failed", "type", eventType, "error", err)
		return
	}

	envelope := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		Producer:      "eventhub",
		CorrelationID: correlationID,
		Payload:       raw,
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		slog.Warn("kafka envelope marshal failed", "type", eventType, "error", err)
		return
	}

	select {
	case p.inbox <- kafka.Message{Key: []byte(correlationID), Value: value, Time: time.Now()}:
	default:
		slog.Warn("kafka inbox full, dropping event", "type", eventType, "correlation_id", correlationID)
	}
}

func (p *Publisher) WaitClosed() { <-p.closeCh }

// ---- payloads ----

type OrderPaidPayload struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	TicketID    string `json:"ticket_id"`
	Quantity    int    `json:"quantity"`
	AmountCents int64  `json:"amount_cents"`
	Reference   string `json:"reference"`
}

type OrderRefundedPayload struct {
	OrderID     string `json:"order_id"`
	AmountCents int64  `json:"amount_cents"`
}

type ReservationExpiredPayload struct {
	ReservationID string `json:"reservation_id"`
	TicketID      string `json:"ticket_id"`
	Quantity      int    `json:"quantity"`
}
