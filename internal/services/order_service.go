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
	"eventhub/utils"
)

// OrderService turns a held reservation plus a resolved payment into an
// immutable order. Payment authorization itself happens at the gateway
// before Purchase is ever called.
type OrderService struct {
	store        store.Store
	ledger       ledger.Ledger
	reservations *ReservationService
	notifier     Notifier
	publisher    EventPublisher
}

func NewOrderService(
	st store.Store,
	lg ledger.Ledger,
	reservations *ReservationService,
	notifier Notifier,
	publisher EventPublisher,
) *OrderService {
	return &OrderService{
		store:        st,
		ledger:       lg,
		reservations: reservations,
		notifier:     notifier,
		publisher:    publisher,
	}
}

type OrderView struct {
	Order *models.Order       `json:"order"`
	Items []*models.OrderItem `json:"items"`
}

// Purchase fulfils a reservation: order + item first, then the
// reservation flips to confirmed and the ledger moves the units from
// reserved to sold. Any failure after the order exists marks it failed
// so inventory is never double-counted.
func (s *OrderService) Purchase(ctx context.Context, reservationID, userID, paymentMethod, transactionRef string) (*models.Order, error) {
	r, err := s.store.Reservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.UserID != "" && r.UserID != userID {
		return nil, status.ErrForbidden
	}
	if r.Terminal() {
		return nil, fmt.Errorf("%w: reservation is %s", status.ErrInvalidState, r.Status)
	}
	if r.Expired(time.Now()) {
		// Payment arrived after the hold lapsed; release it and refuse.
		if err := s.reservations.Expire(ctx, reservationID); err != nil {
			slog.Error("failed to expire stale reservation during purchase",
				"reservation", reservationID, "error", err)
		}
		return nil, fmt.Errorf("%w: hold has expired", status.ErrInvalidState)
	}

	t, err := s.store.TicketType(ctx, r.TicketID)
	if err != nil {
		return nil, err
	}

	reference, err := utils.GenerateCode(5)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:         userID,
		Reference:      reference,
		TotalCents:     t.PriceCents * int64(r.Quantity),
		PaymentStatus:  models.OrderPaid,
		PaymentMethod:  paymentMethod,
		TransactionRef: transactionRef,
	}
	// Price captured now; later catalog price changes never reach this
	// item.
	items := []*models.OrderItem{{
		TicketID:   r.TicketID,
		Quantity:   r.Quantity,
		PriceCents: t.PriceCents,
	}}

	if err := s.store.CreateOrder(ctx, order, items); err != nil {
		return nil, err
	}

	if _, err := s.reservations.Confirm(ctx, reservationID); err != nil {
		s.failOrder(ctx, order.ID)
		return nil, err
	}

	if err := s.ledger.ConfirmSale(ctx, r.TicketID, r.Quantity); err != nil {
		if errors.Is(err, status.ErrInvariantViolation) {
			monitoring.TrackInvariantViolation()
		} else {
			// The reservation is already confirmed but its units never
			// moved to sold. Roll the hold back so they don't stay
			// reserved forever; the sweeper only looks at pending.
			s.unwindConfirm(ctx, r)
		}
		s.failOrder(ctx, order.ID)
		return nil, err
	}

	monitoring.TrackOrder(models.OrderPaid)
	monitoring.TrackTicketsSold(r.Quantity)

	if s.notifier != nil {
		s.notifier.PaymentSucceeded(userID, order.ID, order.Reference)
	}
	if s.publisher != nil {
		s.publisher.Publish(events.TypeOrderPaid, order.ID, events.OrderPaidPayload{
			OrderID:     order.ID,
			UserID:      userID,
			TicketID:    r.TicketID,
			Quantity:    r.Quantity,
			AmountCents: order.TotalCents,
			Reference:   order.Reference,
		})
	}

	return order, nil
}

// Refund flips a paid order to refunded. Inventory is not restored;
// restocking after a refund is an explicit organizer action because the
// event may already have happened.
func (s *OrderService) Refund(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}

	err = s.store.SetOrderStatus(ctx, orderID, models.OrderPaid, models.OrderRefunded)
	if err != nil {
		return nil, err
	}
	order.PaymentStatus = models.OrderRefunded

	monitoring.TrackOrder(models.OrderRefunded)

	if s.publisher != nil {
		s.publisher.Publish(events.TypeOrderRefunded, orderID, events.OrderRefundedPayload{
			OrderID:     orderID,
			AmountCents: order.TotalCents,
		})
	}

	return order, nil
}

func (s *OrderService) Order(ctx context.Context, orderID string) (*OrderView, error) {
	order, err := s.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.OrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderView{Order: order, Items: items}, nil
}

func (s *OrderService) OrderHistory(ctx context.Context, userID string) ([]*OrderView, error) {
	orders, err := s.store.OrdersByUser(ctx, userID, 50)
	if err != nil {
		return nil, err
	}

	views := make([]*OrderView, 0, len(orders))
	for _, order := range orders {
		items, err := s.store.OrderItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, &OrderView{Order: order, Items: items})
	}
	return views, nil
}

// unwindConfirm compensates a confirmed reservation whose sale never
// reached the ledger: flip it to cancelled and release the units. If
// the compensation itself fails the hold is stranded and needs an
// operator, so log it loudly.
func (s *OrderService) unwindConfirm(ctx context.Context, r *models.Reservation) {
	err := s.store.TransitionReservation(ctx, r.ID,
		models.ReservationConfirmed, models.ReservationCancelled)
	if err == nil {
		err = s.ledger.Release(ctx, r.TicketID, r.Quantity)
	}
	if err != nil {
		monitoring.TrackInvariantViolation()
		slog.Error("stranded hold: confirmed reservation could not be rolled back, units remain reserved",
			"reservation", r.ID, "ticket", r.TicketID, "quantity", r.Quantity, "error", err)
	}
}

func (s *OrderService) failOrder(ctx context.Context, orderID string) {
	if err := s.store.SetOrderStatus(ctx, orderID, models.OrderPaid, models.OrderFailed); err != nil {
		slog.Error("failed to mark order as failed", "order", orderID, "error", err)
		return
	}
	monitoring.TrackOrder(models.OrderFailed)
}
