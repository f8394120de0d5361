package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eventhub/internal/ledger"
	"eventhub/internal/status"
	"eventhub/internal/store"
	"eventhub/models"

	"github.com/redis/go-redis/v9"
)

// CatalogService owns ticket-type definitions per event. Quantity is
// fixed at creation; the only way it grows is AddCapacity, never a sale.
type CatalogService struct {
	store    store.Store
	ledger   ledger.Ledger
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewCatalogService(st store.Store, lg ledger.Ledger, redisClient *redis.Client, cacheTTL time.Duration) *CatalogService {
	return &CatalogService{
		store:    st,
		ledger:   lg,
		redis:    redisClient,
		cacheTTL: cacheTTL,
	}
}

type CreateTicketTypeInput struct {
	EventID     string
	OrganizerID string
	Name        string
	Description string
	PriceCents  int64
	Total       int
	SaleStart   *time.Time
	SaleEnd     *time.Time
}

func (s *CatalogService) CreateTicketType(ctx context.Context, in CreateTicketTypeInput) (*models.TicketType, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", status.ErrValidation)
	}
	if in.PriceCents < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", status.ErrValidation)
	}
	if in.Total < 1 {
		return nil, fmt.Errorf("%w: total quantity must be at least 1", status.ErrValidation)
	}
	if in.SaleStart != nil && in.SaleEnd != nil && in.SaleEnd.Before(*in.SaleStart) {
		return nil, fmt.Errorf("%w: sale window ends before it starts", status.ErrValidation)
	}

	event, err := s.store.Event(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != in.OrganizerID {
		return nil, status.ErrForbidden
	}

	t := &models.TicketType{
		EventID:     in.EventID,
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Total:       in.Total,
		SaleStart:   in.SaleStart,
		SaleEnd:     in.SaleEnd,
	}

	// Ticket record and its zero-initialized ledger entry land together.
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.CreateTicketType(ctx, t); err != nil {
			return err
		}
		return s.ledger.Bind(tx.App()).Init(ctx, t.ID, in.Total)
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

// UpdateTicketTypeInput carries a partial edit; nil fields are left
// untouched. The sale-window flags distinguish "not sent" from an
// explicit clear back to "always on sale".
type UpdateTicketTypeInput struct {
	TicketID     string
	OrganizerID  string
	Name         *string
	Description  *string
	PriceCents   *int64
	SaleStart    *time.Time
	SetSaleStart bool
	SaleEnd      *time.Time
	SetSaleEnd   bool
}

// UpdateTicketType changes everything except quantity. Price changes
// never touch existing orders; items capture price at purchase time.
func (s *CatalogService) UpdateTicketType(ctx context.Context, in UpdateTicketTypeInput) (*models.TicketType, error) {
	if in.Name != nil && *in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", status.ErrValidation)
	}
	if in.PriceCents != nil && *in.PriceCents < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", status.ErrValidation)
	}

	t, err := s.ownedTicketType(ctx, in.TicketID, in.OrganizerID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.PriceCents != nil {
		t.PriceCents = *in.PriceCents
	}
	if in.SetSaleStart {
		t.SaleStart = in.SaleStart
	}
	if in.SetSaleEnd {
		t.SaleEnd = in.SaleEnd
	}
	// Validate the merged window, so a new end is checked against the
	// stored start and vice versa.
	if t.SaleStart != nil && t.SaleEnd != nil && t.SaleEnd.Before(*t.SaleStart) {
		return nil, fmt.Errorf("%w: sale window ends before it starts", status.ErrValidation)
	}

	if err := s.store.UpdateTicketType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// AddCapacity is the explicit organizer action that grows total,
// including restocking after refunds.
func (s *CatalogService) AddCapacity(ctx context.Context, ticketID, organizerID string, quantity int) (models.Availability, error) {
	if quantity < 1 {
		return models.Availability{}, fmt.Errorf("%w: quantity must be at least 1", status.ErrValidation)
	}

	t, err := s.ownedTicketType(ctx, ticketID, organizerID)
	if err != nil {
		return models.Availability{}, err
	}

	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		bound := s.ledger.Bind(tx.App())
		if err := bound.AddCapacity(ctx, ticketID, quantity); err != nil {
			return err
		}
		t.Total += quantity
		return tx.UpdateTicketType(ctx, t)
	})
	if err != nil {
		return models.Availability{}, err
	}

	s.invalidateCache(ctx, ticketID)
	return s.ledger.Availability(ctx, ticketID)
}

// DeleteTicketType refuses once any unit is reserved or sold; the
// ledger guard inside the transaction makes the check race-free.
func (s *CatalogService) DeleteTicketType(ctx context.Context, ticketID, organizerID string) error {
	if _, err := s.ownedTicketType(ctx, ticketID, organizerID); err != nil {
		return err
	}

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := s.ledger.Bind(tx.App()).Delete(ctx, ticketID); err != nil {
			return err
		}
		return tx.DeleteTicketType(ctx, ticketID)
	})
	if err != nil {
		return err
	}

	s.invalidateCache(ctx, ticketID)
	return nil
}

func (s *CatalogService) ListTicketTypes(ctx context.Context, eventID string) ([]*models.TicketType, error) {
	return s.store.TicketTypesByEvent(ctx, eventID)
}

func (s *CatalogService) TicketType(ctx context.Context, ticketID string) (*models.TicketType, error) {
	return s.store.TicketType(ctx, ticketID)
}

// Availability reads the ledger directly. The reserve path always uses
// this; the cached variant below is for public browse traffic only.
func (s *CatalogService) Availability(ctx context.Context, ticketID string) (models.Availability, error) {
	return s.ledger.Availability(ctx, ticketID)
}

// CachedAvailability serves the public availability read through a
// short-TTL Redis cache. Stale by at most the TTL, which only affects
// the displayed count; TryReserve is the actual gate.
func (s *CatalogService) CachedAvailability(ctx context.Context, ticketID string) (models.Availability, error) {
	cacheKey := availabilityCacheKey(ticketID)

	if s.redis != nil {
		if data, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var a models.Availability
			if err := json.Unmarshal([]byte(data), &a); err == nil {
				return a, nil
			}
		}
	}

	a, err := s.ledger.Availability(ctx, ticketID)
	if err != nil {
		return models.Availability{}, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(a); err == nil {
			s.redis.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}

	return a, nil
}

func (s *CatalogService) invalidateCache(ctx context.Context, ticketID string) {
	if s.redis != nil {
		s.redis.Del(ctx, availabilityCacheKey(ticketID))
	}
}

func availabilityCacheKey(ticketID string) string {
	return "availability:" + ticketID
}

func (s *CatalogService) ownedTicketType(ctx context.Context, ticketID, organizerID string) (*models.TicketType, error) {
	t, err := s.store.TicketType(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	event, err := s.store.Event(ctx, t.EventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, status.ErrForbidden
	}
	return t, nil
}
