package handlers

import (
	"net/http"

	"eventhub/internal/services"
	"eventhub/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type OrderHandler struct {
	orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Purchase - finalize a pending reservation into a paid order. Used by
// flows where payment was settled out of band; gateway callbacks go
// through the payment service instead.
func (h *OrderHandler) Purchase(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		ReservationID  string `json:"reservation_id"`
		PaymentMethod  string `json:"payment_method"`
		TransactionRef string `json:"transaction_ref"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	order, err := h.orders.Purchase(e.Request.Context(), req.ReservationID, e.Auth.Id, req.PaymentMethod, req.TransactionRef)
	if err != nil {
		return apiError("Failed to complete purchase", err)
	}

	return e.JSON(http.StatusCreated, orderData(order))
}

// GetOrder - order detail with line items, holder only.
func (h *OrderHandler) GetOrder(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	view, err := h.orders.Order(e.Request.Context(), e.Request.PathValue("orderId"))
	if err != nil {
		return apiError("Order not found", err)
	}
	if view.Order.UserID != e.Auth.Id && e.Auth.GetString("role") != RoleAdmin {
		return apis.NewForbiddenError("Not your order", nil)
	}

	return e.JSON(http.StatusOK, orderViewData(view))
}

// MyOrders - the caller's order history, newest first.
func (h *OrderHandler) MyOrders(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	views, err := h.orders.OrderHistory(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError("Failed to load orders", err)
	}

	data := make([]map[string]any, 0, len(views))
	for _, v := range views {
		data = append(data, orderViewData(v))
	}

	return e.JSON(http.StatusOK, map[string]any{"orders": data})
}

// Refund - paid -> refunded. Inventory is not restocked; the organizer
// adds capacity back explicitly if the units should resell.
func (h *OrderHandler) Refund(e *core.RequestEvent) error {
	if err := requireRole(e, RoleOrganizer); err != nil {
		return err
	}

	order, err := h.orders.Refund(e.Request.Context(), e.Request.PathValue("orderId"))
	if err != nil {
		return apiError("Failed to refund order", err)
	}

	return e.JSON(http.StatusOK, orderData(order))
}

func orderData(o *models.Order) map[string]any {
	return map[string]any{
		"id":             o.ID,
		"reference":      o.Reference,
		"total":          models.FormatPrice(o.TotalCents),
		"total_cents":    o.TotalCents,
		"payment_status": o.PaymentStatus,
		"payment_method": o.PaymentMethod,
		"created_at":     o.CreatedAt,
	}
}

func orderViewData(v *services.OrderView) map[string]any {
	items := make([]map[string]any, 0, len(v.Items))
	for _, item := range v.Items {
		items = append(items, map[string]any{
			"ticket_id":   item.TicketID,
			"quantity":    item.Quantity,
			"price":       models.FormatPrice(item.PriceCents),
			"price_cents": item.PriceCents,
		})
	}

	data := orderData(v.Order)
	data["items"] = items
	return data
}
