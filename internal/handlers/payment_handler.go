package handlers

import (
	"net/http"
	"time"

	"eventhub/internal/services"
	"eventhub/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PaymentHandler struct {
	payments     *services.PaymentService
	reservations *services.ReservationService
	catalog      *services.CatalogService
}

func NewPaymentHandler(payments *services.PaymentService, reservations *services.ReservationService, catalog *services.CatalogService) *PaymentHandler {
	return &PaymentHandler{
		payments:     payments,
		reservations: reservations,
		catalog:      catalog,
	}
}

// CreateSession - open a payment window for a pending reservation. The
// amount is computed server side from the current ticket price.
func (h *PaymentHandler) CreateSession(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		ReservationID string `json:"reservation_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	ctx := e.Request.Context()

	reservation, err := h.reservations.Reservation(ctx, req.ReservationID)
	if err != nil {
		return apiError("Reservation not found", err)
	}
	if reservation.UserID != "" && reservation.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Not your reservation", nil)
	}

	ticket, err := h.catalog.TicketType(ctx, reservation.TicketID)
	if err != nil {
		return apiError("Ticket not found", err)
	}
	amountCents := ticket.PriceCents * int64(reservation.Quantity)

	session, err := h.payments.CreateSession(ctx, reservation, amountCents)
	if err != nil {
		return apiError("Failed to create payment session", err)
	}

	return e.JSON(http.StatusCreated, map[string]any{
		"payment_id": session.ID,
		"amount":     models.FormatPrice(session.AmountCents),
		"status":     session.Status,
		"expires_at": session.ExpiresAt,
	})
}

// SessionStatus - poll endpoint for the client while waiting on the
// gateway callback.
func (h *PaymentHandler) SessionStatus(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	session, err := h.payments.Session(e.Request.Context(), e.Request.PathValue("paymentId"))
	if err != nil {
		return apiError("Payment session not found", err)
	}
	if session.UserID != "" && session.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Not your payment", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"payment_id": session.ID,
		"status":     session.Status,
		"expires_at": session.ExpiresAt,
	})
}

// SimulatePayment - dev only, stands in for the gateway callback.
func (h *PaymentHandler) SimulatePayment(e *core.RequestEvent) error {
	var req struct {
		PaymentID string `json:"payment_id"`
		Status    string `json:"status"`
		Method    string `json:"method"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Status == "" {
		req.Status = "success"
	}
	if req.Method == "" {
		req.Method = "simulated"
	}

	h.payments.HandlePaymentNotification(map[string]interface{}{
		"payment_id":      req.PaymentID,
		"status":          req.Status,
		"method":          req.Method,
		"transaction_ref": "SIM-" + req.PaymentID,
		"timestamp":       time.Now().Format(time.RFC3339),
	})

	return e.JSON(http.StatusOK, map[string]any{"processed": true})
}
