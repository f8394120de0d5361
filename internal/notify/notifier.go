// Package notify pushes realtime updates to users over PubNub channels,
// mirroring how the web client listens on "user-<id>".
package notify

import (
	"log/slog"

	"eventhub/utils"

	pubnub "github.com/pubnub/go"
)

type Notifier struct {
	pn      *pubnub.PubNub
	breaker *utils.CircuitBreaker
}

func NewNotifier(pn *pubnub.PubNub) *Notifier {
	return &Notifier{
		pn:      pn,
		breaker: utils.NewCircuitBreaker("pubnub"),
	}
}

func (n *Notifier) ReservationExpired(userID, reservationID string, quantity int) {
	n.publish(userID, map[string]any{
		"type":           "reservation_expired",
		"reservation_id": reservationID,
		"quantity":       quantity,
		"message":        "Your hold has expired, please try again.",
	})
}

func (n *Notifier) PaymentSucceeded(userID, orderID, reference string) {
	n.publish(userID, map[string]any{
		"type":      "payment_success",
		"order_id":  orderID,
		"reference": reference,
	})
}

func (n *Notifier) PaymentFailed(userID, reservationID, reason string) {
	n.publish(userID, map[string]any{
		"type":           "payment_failed",
		"reservation_id": reservationID,
		"reason":         reason,
	})
}

func (n *Notifier) publish(userID string, message map[string]any) {
	// Guest holds have no channel to notify.
	if n == nil || n.pn == nil || userID == "" {
		return
	}

	channel := "user-" + userID
	err := n.breaker.Execute(func() error {
		_, _, err := n.pn.Publish().
			Channel(channel).
			Message(message).
			Execute()
		return err
	})
	if err != nil {
		slog.Warn("pubnub publish failed", "channel", channel, "error", err)
	}
}
