package handlers

import (
	"net/http"

	"eventhub/internal/services"
	"eventhub/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type ReservationHandler struct {
	reservations *services.ReservationService
}

func NewReservationHandler(reservations *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

// CreateReservation - place a time-boxed hold on inventory. Guests may
// hold; checkout later requires auth.
func (h *ReservationHandler) CreateReservation(e *core.RequestEvent) error {
	var req struct {
		TicketID string `json:"ticket_id"`
		Quantity int    `json:"quantity"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	reservation, err := h.reservations.Reserve(e.Request.Context(), req.TicketID, req.Quantity, authID(e))
	if err != nil {
		return apiError("Failed to reserve tickets", err)
	}

	return e.JSON(http.StatusCreated, reservationData(reservation))
}

// GetReservation - holders check the state of their own hold.
func (h *ReservationHandler) GetReservation(e *core.RequestEvent) error {
	reservation, err := h.reservations.Reservation(e.Request.Context(), e.Request.PathValue("reservationId"))
	if err != nil {
		return apiError("Reservation not found", err)
	}
	if reservation.UserID != "" && reservation.UserID != authID(e) {
		return apis.NewForbiddenError("Not your reservation", nil)
	}

	return e.JSON(http.StatusOK, reservationData(reservation))
}

// CancelReservation - voluntary release before expiry.
func (h *ReservationHandler) CancelReservation(e *core.RequestEvent) error {
	err := h.reservations.Cancel(e.Request.Context(), e.Request.PathValue("reservationId"), authID(e))
	if err != nil {
		return apiError("Failed to cancel reservation", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"cancelled": true})
}

// MyReservations - the caller's recent holds, newest first.
func (h *ReservationHandler) MyReservations(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	reservations, err := h.reservations.ReservationsByUser(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError("Failed to load reservations", err)
	}

	data := make([]map[string]any, 0, len(reservations))
	for _, r := range reservations {
		data = append(data, reservationData(r))
	}

	return e.JSON(http.StatusOK, map[string]any{"reservations": data})
}

func reservationData(r *models.Reservation) map[string]any {
	return map[string]any{
		"id":         r.ID,
		"ticket_id":  r.TicketID,
		"quantity":   r.Quantity,
		"status":     r.Status,
		"expires_at": r.ExpiresAt,
	}
}
