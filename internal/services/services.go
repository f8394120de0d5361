package services

// Notifier pushes realtime updates to a user's channel. Implemented by
// notify.Notifier; nil-safe in every service so dev setups can run
// without PubNub credentials.
type Notifier interface {
	ReservationExpired(userID, reservationID string, quantity int)
	PaymentSucceeded(userID, orderID, reference string)
	PaymentFailed(userID, reservationID, reason string)
}

// EventPublisher streams domain events for downstream consumers.
// Implemented by events.Publisher.
type EventPublisher interface {
	Publish(eventType, correlationID string, payload any)
}
