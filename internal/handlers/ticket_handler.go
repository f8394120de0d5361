package handlers

import (
	"net/http"
	"time"

	"eventhub/internal/services"
	"eventhub/models"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type TicketHandler struct {
	app     *pocketbase.PocketBase
	catalog *services.CatalogService
}

func NewTicketHandler(app *pocketbase.PocketBase, catalog *services.CatalogService) *TicketHandler {
	return &TicketHandler{app: app, catalog: catalog}
}

// ListTicketTypes - public tiers for an event with live availability.
func (h *TicketHandler) ListTicketTypes(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	tickets, err := h.catalog.ListTicketTypes(ctx, e.Request.PathValue("eventId"))
	if err != nil {
		return apiError("Failed to load tickets", err)
	}

	data := make([]map[string]any, 0, len(tickets))
	for _, t := range tickets {
		td := ticketTypeData(t)
		if avail, err := h.catalog.CachedAvailability(ctx, t.ID); err == nil {
			td["available"] = avail.Available()
			td["sold"] = avail.Sold
		}
		data = append(data, td)
	}

	return e.JSON(http.StatusOK, map[string]any{"tickets": data})
}

// CreateTicketType - organizers add a ticket tier to their event.
// Prices arrive as major-unit strings ("25.50") and are stored in cents.
func (h *TicketHandler) CreateTicketType(e *core.RequestEvent) error {
	if err := requireRole(e, RoleOrganizer); err != nil {
		return err
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Price       string `json:"price"`
		Total       int    `json:"total_quantity"`
		SaleStart   string `json:"sale_start"`
		SaleEnd     string `json:"sale_end"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	priceCents, ok := models.ParsePrice(req.Price)
	if !ok {
		return apis.NewBadRequestError("Invalid price", nil)
	}
	saleStart, err := parseOptionalTime(req.SaleStart)
	if err != nil {
		return apis.NewBadRequestError("Invalid sale_start", err)
	}
	saleEnd, err := parseOptionalTime(req.SaleEnd)
	if err != nil {
		return apis.NewBadRequestError("Invalid sale_end", err)
	}

	ticket, err := h.catalog.CreateTicketType(e.Request.Context(), services.CreateTicketTypeInput{
		EventID:     e.Request.PathValue("eventId"),
		OrganizerID: e.Auth.Id,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  priceCents,
		Total:       req.Total,
		SaleStart:   saleStart,
		SaleEnd:     saleEnd,
	})
	if err != nil {
		return apiError("Failed to create ticket type", err)
	}

	return e.JSON(http.StatusCreated, ticketTypeData(ticket))
}

// UpdateTicketType - edits everything except quantity. Capacity changes
// go through AddCapacity so the ledger stays consistent. Omitted fields
// keep their stored values; an empty sale_start/sale_end clears that
// bound.
func (h *TicketHandler) UpdateTicketType(e *core.RequestEvent) error {
	if err := requireRole(e, RoleOrganizer); err != nil {
		return err
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Price       *string `json:"price"`
		SaleStart   *string `json:"sale_start"`
		SaleEnd     *string `json:"sale_end"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	in := services.UpdateTicketTypeInput{
		TicketID:    e.Request.PathValue("ticketId"),
		OrganizerID: e.Auth.Id,
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Price != nil {
		priceCents, ok := models.ParsePrice(*req.Price)
		if !ok {
			return apis.NewBadRequestError("Invalid price", nil)
		}
		in.PriceCents = &priceCents
	}
	if req.SaleStart != nil {
		saleStart, err := parseOptionalTime(*req.SaleStart)
		if err != nil {
			return apis.NewBadRequestError("Invalid sale_start", err)
		}
		in.SaleStart = saleStart
		in.SetSaleStart = true
	}
	if req.SaleEnd != nil {
		saleEnd, err := parseOptionalTime(*req.SaleEnd)
		if err != nil {
			return apis.NewBadRequestError("Invalid sale_end", err)
		}
		in.SaleEnd = saleEnd
		in.SetSaleEnd = true
	}

	ticket, err := h.catalog.UpdateTicketType(e.Request.Context(), in)
	if err != nil {
		return apiError("Failed to update ticket type", err)
	}

	return e.JSON(http.StatusOK, ticketTypeData(ticket))
}

// AddCapacity - grows total quantity, including restock after refunds.
func (h *TicketHandler) AddCapacity(e *core.RequestEvent) error {
	if err := requireRole(e, RoleOrganizer); err != nil {
		return err
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	avail, err := h.catalog.AddCapacity(e.Request.Context(), e.Request.PathValue("ticketId"), e.Auth.Id, req.Quantity)
	if err != nil {
		return apiError("Failed to add capacity", err)
	}

	return e.JSON(http.StatusOK, availabilityData(avail))
}

// DeleteTicketType - refused once any unit is reserved or sold.
func (h *TicketHandler) DeleteTicketType(e *core.RequestEvent) error {
	if err := requireRole(e, RoleOrganizer); err != nil {
		return err
	}

	err := h.catalog.DeleteTicketType(e.Request.Context(), e.Request.PathValue("ticketId"), e.Auth.Id)
	if err != nil {
		return apiError("Failed to delete ticket type", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"deleted": true})
}

// GetAvailability - public, served from the short-lived Redis cache.
func (h *TicketHandler) GetAvailability(e *core.RequestEvent) error {
	avail, err := h.catalog.CachedAvailability(e.Request.Context(), e.Request.PathValue("ticketId"))
	if err != nil {
		return apiError("Failed to get availability", err)
	}

	return e.JSON(http.StatusOK, availabilityData(avail))
}

func ticketTypeData(t *models.TicketType) map[string]any {
	data := map[string]any{
		"id":             t.ID,
		"event_id":       t.EventID,
		"name":           t.Name,
		"description":    t.Description,
		"price":          models.FormatPrice(t.PriceCents),
		"price_cents":    t.PriceCents,
		"total_quantity": t.Total,
	}
	if t.SaleStart != nil {
		data["sale_start"] = t.SaleStart
	}
	if t.SaleEnd != nil {
		data["sale_end"] = t.SaleEnd
	}
	return data
}

func availabilityData(a models.Availability) map[string]any {
	return map[string]any{
		"ticket_id": a.TicketID,
		"total":     a.Total,
		"reserved":  a.Reserved,
		"sold":      a.Sold,
		"available": a.Available(),
	}
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
