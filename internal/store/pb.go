package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventhub/internal/status"
	"eventhub/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// PBStore persists the domain on PocketBase collections.
type PBStore struct {
	app core.App
}

func NewPBStore(app core.App) *PBStore {
	return &PBStore{app: app}
}

func (s *PBStore) App() core.App {
	return s.app
}

func (s *PBStore) RunInTransaction(_ context.Context, fn func(tx Store) error) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		return fn(&PBStore{app: txApp})
	})
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return status.ErrNotFound
	}
	return err
}

// ---- events ----

func (s *PBStore) Event(ctx context.Context, id string) (*models.Event, error) {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		return nil, notFound(err)
	}
	return eventFromRecord(record), nil
}

func eventFromRecord(r *core.Record) *models.Event {
	return &models.Event{
		ID:          r.Id,
		OrganizerID: r.GetString("organizer"),
		Name:        r.GetString("name"),
		Description: r.GetString("description"),
		CategoryID:  r.GetString("category"),
		VenueID:     r.GetString("venue"),
		CoverImage:  r.GetString("cover_image"),
		StartTime:   r.GetDateTime("start_time").Time(),
		EndTime:     r.GetDateTime("end_time").Time(),
		IsOnline:    r.GetBool("is_online"),
		OnlineURL:   r.GetString("online_url"),
		Status:      r.GetString("status"),
	}
}

// ---- ticket types ----

func (s *PBStore) TicketType(ctx context.Context, id string) (*models.TicketType, error) {
	record, err := s.app.FindRecordById("tickets", id)
	if err != nil {
		return nil, notFound(err)
	}
	return ticketTypeFromRecord(record), nil
}

func (s *PBStore) TicketTypesByEvent(ctx context.Context, eventID string) ([]*models.TicketType, error) {
	records, err := s.app.FindRecordsByFilter(
		"tickets",
		"event = {:event}",
		"created",
		-1,
		0,
		map[string]any{"event": eventID},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*models.TicketType, len(records))
	for i, r := range records {
		out[i] = ticketTypeFromRecord(r)
	}
	return out, nil
}

func (s *PBStore) CreateTicketType(ctx context.Context, t *models.TicketType) error {
	collection, err := s.app.FindCollectionByNameOrId("tickets")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	applyTicketType(record, t)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return err
	}
	t.ID = record.Id
	t.CreatedAt = record.GetDateTime("created").Time()
	return nil
}

func (s *PBStore) UpdateTicketType(ctx context.Context, t *models.TicketType) error {
	record, err := s.app.FindRecordById("tickets", t.ID)
	if err != nil {
		return notFound(err)
	}
	applyTicketType(record, t)
	return s.app.SaveWithContext(ctx, record)
}

func (s *PBStore) DeleteTicketType(ctx context.Context, id string) error {
	record, err := s.app.FindRecordById("tickets", id)
	if err != nil {
		return notFound(err)
	}
	return s.app.DeleteWithContext(ctx, record)
}

func applyTicketType(r *core.Record, t *models.TicketType) {
	r.Set("event", t.EventID)
	r.Set("name", t.Name)
	r.Set("description", t.Description)
	r.Set("price_cents", t.PriceCents)
	r.Set("total_quantity", t.Total)
	if t.SaleStart != nil {
		r.Set("sale_start", t.SaleStart.UTC())
	} else {
		r.Set("sale_start", "")
	}
	if t.SaleEnd != nil {
		r.Set("sale_end", t.SaleEnd.UTC())
	} else {
		r.Set("sale_end", "")
	}
}

func ticketTypeFromRecord(r *core.Record) *models.TicketType {
	t := &models.TicketType{
		ID:          r.Id,
		EventID:     r.GetString("event"),
		Name:        r.GetString("name"),
		Description: r.GetString("description"),
		PriceCents:  int64(r.GetInt("price_cents")),
		Total:       r.GetInt("total_quantity"),
		CreatedAt:   r.GetDateTime("created").Time(),
	}
	if start := r.GetDateTime("sale_start"); !start.IsZero() {
		tm := start.Time()
		t.SaleStart = &tm
	}
	if end := r.GetDateTime("sale_end"); !end.IsZero() {
		tm := end.Time()
		t.SaleEnd = &tm
	}
	return t
}

// ---- reservations ----

func (s *PBStore) Reservation(ctx context.Context, id string) (*models.Reservation, error) {
	record, err := s.app.FindRecordById("reservations", id)
	if err != nil {
		return nil, notFound(err)
	}
	return reservationFromRecord(record), nil
}

func (s *PBStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	collection, err := s.app.FindCollectionByNameOrId("reservations")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("ticket", r.TicketID)
	record.Set("user", r.UserID)
	record.Set("quantity", r.Quantity)
	record.Set("expires_at", r.ExpiresAt.UTC())
	record.Set("status", r.Status)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return err
	}
	r.ID = record.Id
	r.CreatedAt = record.GetDateTime("created").Time()
	return nil
}

// TransitionReservation is a single conditional UPDATE; the status guard
// in the WHERE clause is what makes concurrent transitions safe.
func (s *PBStore) TransitionReservation(ctx context.Context, id, from, to string) error {
	res, err := s.app.DB().
		NewQuery(`UPDATE reservations
			SET status = {:to}
			WHERE id = {:id} AND status = {:from}`).
		Bind(dbx.Params{"id": id, "from": from, "to": to}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.Reservation(ctx, id); err != nil {
			return err
		}
		return status.ErrInvalidState
	}
	return nil
}

func (s *PBStore) ReservationsByUser(ctx context.Context, userID string, limit int) ([]*models.Reservation, error) {
	records, err := s.app.FindRecordsByFilter(
		"reservations",
		"user = {:user}",
		"-created",
		limit,
		0,
		map[string]any{"user": userID},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Reservation, len(records))
	for i, r := range records {
		out[i] = reservationFromRecord(r)
	}
	return out, nil
}

func (s *PBStore) PendingExpired(ctx context.Context, before time.Time, limit int) ([]*models.Reservation, error) {
	cutoff := before.UTC().Format(types.DefaultDateLayout)
	records, err := s.app.FindRecordsByFilter(
		"reservations",
		"status = 'pending' && expires_at <= {:cutoff}",
		"expires_at",
		limit,
		0,
		map[string]any{"cutoff": cutoff},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Reservation, len(records))
	for i, r := range records {
		out[i] = reservationFromRecord(r)
	}
	return out, nil
}

func reservationFromRecord(r *core.Record) *models.Reservation {
	return &models.Reservation{
		ID:        r.Id,
		TicketID:  r.GetString("ticket"),
		UserID:    r.GetString("user"),
		Quantity:  r.GetInt("quantity"),
		Status:    r.GetString("status"),
		CreatedAt: r.GetDateTime("created").Time(),
		ExpiresAt: r.GetDateTime("expires_at").Time(),
	}
}

// ---- orders ----

func (s *PBStore) Order(ctx context.Context, id string) (*models.Order, error) {
	record, err := s.app.FindRecordById("orders", id)
	if err != nil {
		return nil, notFound(err)
	}
	return orderFromRecord(record), nil
}

func (s *PBStore) CreateOrder(ctx context.Context, o *models.Order, items []*models.OrderItem) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		orders, err := txApp.FindCollectionByNameOrId("orders")
		if err != nil {
			return err
		}
		record := core.NewRecord(orders)
		record.Set("user", o.UserID)
		record.Set("reference", o.Reference)
		record.Set("total_cents", o.TotalCents)
		record.Set("payment_status", o.PaymentStatus)
		record.Set("payment_method", o.PaymentMethod)
		record.Set("transaction_ref", o.TransactionRef)
		if err := txApp.SaveWithContext(ctx, record); err != nil {
			return err
		}
		o.ID = record.Id
		o.CreatedAt = record.GetDateTime("created").Time()

		orderItems, err := txApp.FindCollectionByNameOrId("order_items")
		if err != nil {
			return err
		}
		for _, item := range items {
			itemRecord := core.NewRecord(orderItems)
			itemRecord.Set("order", o.ID)
			itemRecord.Set("ticket", item.TicketID)
			itemRecord.Set("quantity", item.Quantity)
			itemRecord.Set("price_cents", item.PriceCents)
			if err := txApp.SaveWithContext(ctx, itemRecord); err != nil {
				return err
			}
			item.ID = itemRecord.Id
			item.OrderID = o.ID
		}
		return nil
	})
}

func (s *PBStore) SetOrderStatus(ctx context.Context, id, from, to string) error {
	res, err := s.app.DB().
		NewQuery(`UPDATE orders
			SET payment_status = {:to}
			WHERE id = {:id} AND payment_status = {:from}`).
		Bind(dbx.Params{"id": id, "from": from, "to": to}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.Order(ctx, id); err != nil {
			return err
		}
		return status.ErrInvalidState
	}
	return nil
}

func (s *PBStore) OrdersByUser(ctx context.Context, userID string, limit int) ([]*models.Order, error) {
	records, err := s.app.FindRecordsByFilter(
		"orders",
		"user = {:user}",
		"-created",
		limit,
		0,
		map[string]any{"user": userID},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Order, len(records))
	for i, r := range records {
		out[i] = orderFromRecord(r)
	}
	return out, nil
}

func (s *PBStore) OrderItems(ctx context.Context, orderID string) ([]*models.OrderItem, error) {
	records, err := s.app.FindRecordsByFilter(
		"order_items",
		"order = {:order}",
		"created",
		-1,
		0,
		map[string]any{"order": orderID},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*models.OrderItem, len(records))
	for i, r := range records {
		out[i] = &models.OrderItem{
			ID:         r.Id,
			OrderID:    r.GetString("order"),
			TicketID:   r.GetString("ticket"),
			Quantity:   r.GetInt("quantity"),
			PriceCents: int64(r.GetInt("price_cents")),
		}
	}
	return out, nil
}

func orderFromRecord(r *core.Record) *models.Order {
	return &models.Order{
		ID:             r.Id,
		UserID:         r.GetString("user"),
		Reference:      r.GetString("reference"),
		TotalCents:     int64(r.GetInt("total_cents")),
		PaymentStatus:  r.GetString("payment_status"),
		PaymentMethod:  r.GetString("payment_method"),
		TransactionRef: r.GetString("transaction_ref"),
		CreatedAt:      r.GetDateTime("created").Time(),
	}
}
