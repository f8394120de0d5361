package handlers

import (
	"net/http"
	"strconv"
	"time"

	"eventhub/internal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

type EventHandler struct {
	app     *pocketbase.PocketBase
	catalog *services.CatalogService
}

func NewEventHandler(app *pocketbase.PocketBase, catalog *services.CatalogService) *EventHandler {
	return &EventHandler{app: app, catalog: catalog}
}

// ListEvents - public listing of published events with optional
// category, text search and upcoming filters.
func (h *EventHandler) ListEvents(e *core.RequestEvent) error {
	q := e.Request.URL.Query()

	filter := "status = 'published'"
	params := map[string]any{}

	if category := q.Get("category"); category != "" {
		filter += " && category = {:category}"
		params["category"] = category
	}
	if search := q.Get("q"); search != "" {
		filter += " && (name ~ {:search} || description ~ {:search})"
		params["search"] = search
	}
	if q.Get("upcoming") == "true" {
		filter += " && start_time >= {:now}"
		params["now"] = time.Now().UTC().Format(types.DefaultDateLayout)
	}

	limit := 50
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}
	offset := 0
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		offset = n
	}

	records, err := h.app.FindRecordsByFilter("events", filter, "start_time", limit, offset, params)
	if err != nil {
		return apis.NewBadRequestError("Failed to list events", err)
	}

	events := make([]map[string]any, 0, len(records))
	for _, record := range records {
		events = append(events, eventData(record))
	}

	return e.JSON(http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// UpcomingEvents - published events that have not started yet.
func (h *EventHandler) UpcomingEvents(e *core.RequestEvent) error {
	records, err := h.app.FindRecordsByFilter(
		"events",
		"status = 'published' && start_time >= {:now}",
		"start_time", 20, 0,
		map[string]any{"now": time.Now().UTC().Format(types.DefaultDateLayout)},
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to list events", err)
	}

	events := make([]map[string]any, 0, len(records))
	for _, record := range records {
		events = append(events, eventData(record))
	}

	return e.JSON(http.StatusOK, map[string]any{"events": events})
}

// GetEvent - public detail view with ticket types and live availability.
// Drafts are only visible to their organizer and admins.
func (h *EventHandler) GetEvent(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	record, err := h.app.FindRecordById("events", eventID)
	if err != nil {
		return apis.NewNotFoundError("Event not found", err)
	}

	if record.GetString("status") == "draft" {
		if e.Auth == nil || (e.Auth.Id != record.GetString("organizer") && e.Auth.GetString("role") != RoleAdmin) {
			return apis.NewNotFoundError("Event not found", nil)
		}
	}

	ctx := e.Request.Context()
	tickets, err := h.catalog.ListTicketTypes(ctx, eventID)
	if err != nil {
		return apiError("Failed to load tickets", err)
	}

	ticketData := make([]map[string]any, 0, len(tickets))
	for _, t := range tickets {
		data := ticketTypeData(t)
		if avail, err := h.catalog.CachedAvailability(ctx, t.ID); err == nil {
			data["available"] = avail.Available()
			data["sold"] = avail.Sold
		}
		ticketData = append(ticketData, data)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event":   eventData(record),
		"tickets": ticketData,
	})
}

// CreateEvent - organizers create events in draft status.
func (h *EventHandler) CreateEvent(e *core.RequestEvent) error {
	if err := requireRole(e, RoleOrganizer); err != nil {
		return err
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Venue       string `json:"venue"`
		StartTime   string `json:"start_time"`
		EndTime     string `json:"end_time"`
		IsOnline    bool   `json:"is_online"`
		OnlineURL   string `json:"online_url"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Name == "" {
		return apis.NewBadRequestError("Event name is required", nil)
	}

	collection, err := h.app.FindCollectionByNameOrId("events")
	if err != nil {
		return apis.NewBadRequestError("Failed to create event", err)
	}

	record := core.NewRecord(collection)
	record.Set("organizer", e.Auth.Id)
	record.Set("name", req.Name)
	record.Set("description", req.Description)
	record.Set("category", req.Category)
	record.Set("venue", req.Venue)
	record.Set("start_time", req.StartTime)
	record.Set("end_time", req.EndTime)
	record.Set("is_online", req.IsOnline)
	record.Set("online_url", req.OnlineURL)
	record.Set("status", "draft")

	if err := h.app.SaveWithContext(e.Request.Context(), record); err != nil {
		return apis.NewBadRequestError("Failed to create event", err)
	}

	return e.JSON(http.StatusCreated, eventData(record))
}

// UpdateEvent - organizers edit their own events.
func (h *EventHandler) UpdateEvent(e *core.RequestEvent) error {
	record, err := h.ownedEvent(e)
	if err != nil {
		return err
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Category    *string `json:"category"`
		Venue       *string `json:"venue"`
		StartTime   *string `json:"start_time"`
		EndTime     *string `json:"end_time"`
		IsOnline    *bool   `json:"is_online"`
		OnlineURL   *string `json:"online_url"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if req.Name != nil {
		if *req.Name == "" {
			return apis.NewBadRequestError("Event name is required", nil)
		}
		record.Set("name", *req.Name)
	}
	if req.Description != nil {
		record.Set("description", *req.Description)
	}
	if req.Category != nil {
		record.Set("category", *req.Category)
	}
	if req.Venue != nil {
		record.Set("venue", *req.Venue)
	}
	if req.StartTime != nil {
		record.Set("start_time", *req.StartTime)
	}
	if req.EndTime != nil {
		record.Set("end_time", *req.EndTime)
	}
	if req.IsOnline != nil {
		record.Set("is_online", *req.IsOnline)
	}
	if req.OnlineURL != nil {
		record.Set("online_url", *req.OnlineURL)
	}

	if err := h.app.SaveWithContext(e.Request.Context(), record); err != nil {
		return apis.NewBadRequestError("Failed to update event", err)
	}

	return e.JSON(http.StatusOK, eventData(record))
}

// PublishEvent - draft -> published. Sales cannot start before this.
func (h *EventHandler) PublishEvent(e *core.RequestEvent) error {
	record, err := h.ownedEvent(e)
	if err != nil {
		return err
	}

	if record.GetString("status") != "draft" {
		return apis.NewApiError(http.StatusConflict, "Only draft events can be published", nil)
	}
	if record.GetDateTime("start_time").IsZero() {
		return apis.NewBadRequestError("Event needs a start time before publishing", nil)
	}

	record.Set("status", "published")
	if err := h.app.SaveWithContext(e.Request.Context(), record); err != nil {
		return apis.NewBadRequestError("Failed to publish event", err)
	}

	return e.JSON(http.StatusOK, eventData(record))
}

// CancelEvent - published -> cancelled. Stops new holds immediately;
// refunds for sold tickets go through the order refund endpoint.
func (h *EventHandler) CancelEvent(e *core.RequestEvent) error {
	record, err := h.ownedEvent(e)
	if err != nil {
		return err
	}

	if record.GetString("status") != "published" {
		return apis.NewApiError(http.StatusConflict, "Only published events can be cancelled", nil)
	}

	record.Set("status", "cancelled")
	if err := h.app.SaveWithContext(e.Request.Context(), record); err != nil {
		return apis.NewBadRequestError("Failed to cancel event", err)
	}

	return e.JSON(http.StatusOK, eventData(record))
}

// ToggleWatchlist - add or remove an event from the caller's watchlist.
func (h *EventHandler) ToggleWatchlist(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	eventID := e.Request.PathValue("eventId")

	if _, err := h.app.FindRecordById("events", eventID); err != nil {
		return apis.NewNotFoundError("Event not found", err)
	}

	existing, err := h.app.FindRecordsByFilter(
		"watchlists",
		"user = {:user} && event = {:event}",
		"", 1, 0,
		map[string]any{"user": e.Auth.Id, "event": eventID},
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to toggle watchlist", err)
	}

	ctx := e.Request.Context()
	if len(existing) > 0 {
		if err := h.app.DeleteWithContext(ctx, existing[0]); err != nil {
			return apis.NewBadRequestError("Failed to toggle watchlist", err)
		}
		return e.JSON(http.StatusOK, map[string]any{"watching": false})
	}

	collection, err := h.app.FindCollectionByNameOrId("watchlists")
	if err != nil {
		return apis.NewBadRequestError("Failed to toggle watchlist", err)
	}
	record := core.NewRecord(collection)
	record.Set("user", e.Auth.Id)
	record.Set("event", eventID)
	if err := h.app.SaveWithContext(ctx, record); err != nil {
		return apis.NewBadRequestError("Failed to toggle watchlist", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"watching": true})
}

// MyWatchlist - the caller's watched events.
func (h *EventHandler) MyWatchlist(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	entries, err := h.app.FindRecordsByFilter(
		"watchlists",
		"user = {:user}",
		"-created", 100, 0,
		map[string]any{"user": e.Auth.Id},
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to load watchlist", err)
	}

	events := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		record, err := h.app.FindRecordById("events", entry.GetString("event"))
		if err != nil {
			continue
		}
		events = append(events, eventData(record))
	}

	return e.JSON(http.StatusOK, map[string]any{"events": events})
}

func (h *EventHandler) ownedEvent(e *core.RequestEvent) (*core.Record, error) {
	if err := requireRole(e, RoleOrganizer); err != nil {
		return nil, err
	}

	record, err := h.app.FindRecordById("events", e.Request.PathValue("eventId"))
	if err != nil {
		return nil, apis.NewNotFoundError("Event not found", err)
	}
	if record.GetString("organizer") != e.Auth.Id && e.Auth.GetString("role") != RoleAdmin {
		return nil, apis.NewForbiddenError("Not your event", nil)
	}
	return record, nil
}

func eventData(record *core.Record) map[string]any {
	return map[string]any{
		"id":          record.Id,
		"organizer":   record.GetString("organizer"),
		"name":        record.GetString("name"),
		"description": record.GetString("description"),
		"category":    record.GetString("category"),
		"venue":       record.GetString("venue"),
		"cover_image": record.GetString("cover_image"),
		"start_time":  record.GetDateTime("start_time").Time(),
		"end_time":    record.GetDateTime("end_time").Time(),
		"is_online":   record.GetBool("is_online"),
		"online_url":  record.GetString("online_url"),
		"status":      record.GetString("status"),
	}
}
