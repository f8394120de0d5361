package handlers

import (
	"net/http"

	"eventhub/internal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	app          *pocketbase.PocketBase
	reservations *services.ReservationService
}

func NewAdminHandler(app *pocketbase.PocketBase, reservations *services.ReservationService) *AdminHandler {
	return &AdminHandler{app: app, reservations: reservations}
}

// ListCategories - public directory of event categories.
func (h *AdminHandler) ListCategories(e *core.RequestEvent) error {
	records, err := h.app.FindRecordsByFilter("categories", "id != ''", "name", 100, 0, nil)
	if err != nil {
		return apis.NewBadRequestError("Failed to list categories", err)
	}

	categories := make([]map[string]any, 0, len(records))
	for _, record := range records {
		categories = append(categories, map[string]any{
			"id":          record.Id,
			"name":        record.GetString("name"),
			"slug":        record.GetString("slug"),
			"description": record.GetString("description"),
		})
	}

	return e.JSON(http.StatusOK, map[string]any{"categories": categories})
}

func (h *AdminHandler) CreateCategory(e *core.RequestEvent) error {
	if err := requireRole(e, RoleAdmin); err != nil {
		return err
	}

	var req struct {
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Name == "" || req.Slug == "" {
		return apis.NewBadRequestError("Name and slug are required", nil)
	}

	collection, err := h.app.FindCollectionByNameOrId("categories")
	if err != nil {
		return apis.NewBadRequestError("Failed to create category", err)
	}

	record := core.NewRecord(collection)
	record.Set("name", req.Name)
	record.Set("slug", req.Slug)
	record.Set("description", req.Description)
	if err := h.app.SaveWithContext(e.Request.Context(), record); err != nil {
		return apis.NewBadRequestError("Failed to create category", err)
	}

	return e.JSON(http.StatusCreated, map[string]any{"id": record.Id})
}

func (h *AdminHandler) UpdateCategory(e *core.RequestEvent) error {
	if err := requireRole(e, RoleAdmin); err != nil {
		return err
	}

	record, err := h.app.FindRecordById("categories", e.Request.PathValue("categoryId"))
	if err != nil {
		return apis.NewNotFoundError("Category not found", err)
	}

	var req struct {
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if req.Name != "" {
		record.Set("name", req.Name)
	}
	if req.Slug != "" {
		record.Set("slug", req.Slug)
	}
	record.Set("description", req.Description)
	if err := h.app.SaveWithContext(e.Request.Context(), record); err != nil {
		return apis.NewBadRequestError("Failed to update category", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"updated": true})
}

func (h *AdminHandler) DeleteCategory(e *core.RequestEvent) error {
	if err := requireRole(e, RoleAdmin); err != nil {
		return err
	}

	record, err := h.app.FindRecordById("categories", e.Request.PathValue("categoryId"))
	if err != nil {
		return apis.NewNotFoundError("Category not found", err)
	}

	inUse, err := h.app.FindRecordsByFilter("events", "category = {:category}", "", 1, 0,
		map[string]any{"category": record.Id})
	if err == nil && len(inUse) > 0 {
		return apis.NewApiError(http.StatusConflict, "Category is in use", nil)
	}

	if err := h.app.DeleteWithContext(e.Request.Context(), record); err != nil {
		return apis.NewBadRequestError("Failed to delete category", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"deleted": true})
}

// UpdateUserRole - admin promotes or demotes accounts.
func (h *AdminHandler) UpdateUserRole(e *core.RequestEvent) error {
	if err := requireRole(e, RoleAdmin); err != nil {
		return err
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Role != RoleUser && req.Role != RoleOrganizer && req.Role != RoleAdmin {
		return apis.NewBadRequestError("Unknown role", nil)
	}

	record, err := h.app.FindRecordById("users", e.Request.PathValue("userId"))
	if err != nil {
		return apis.NewNotFoundError("User not found", err)
	}

	record.Set("role", req.Role)
	if err := h.app.SaveWithContext(e.Request.Context(), record); err != nil {
		return apis.NewBadRequestError("Failed to update role", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"user_id": record.Id,
		"role":    req.Role,
	})
}

// InventoryDashboard - raw ledger counts across all ticket types.
func (h *AdminHandler) InventoryDashboard(e *core.RequestEvent) error {
	if err := requireRole(e, RoleAdmin); err != nil {
		return err
	}

	records, err := h.app.FindRecordsByFilter("ticket_ledger", "id != ''", "-created", 500, 0, nil)
	if err != nil {
		return apis.NewBadRequestError("Failed to load inventory", err)
	}

	entries := make([]map[string]any, 0, len(records))
	for _, record := range records {
		total := record.GetInt("total")
		reserved := record.GetInt("reserved")
		sold := record.GetInt("sold")
		entries = append(entries, map[string]any{
			"ticket_id": record.GetString("ticket"),
			"total":     total,
			"reserved":  reserved,
			"sold":      sold,
			"available": total - reserved - sold,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// ForceSweep - run the expiry sweep now instead of waiting for the
// ticker.
func (h *AdminHandler) ForceSweep(e *core.RequestEvent) error {
	if err := requireRole(e, RoleAdmin); err != nil {
		return err
	}

	expired, err := h.reservations.SweepExpired(e.Request.Context())
	if err != nil {
		return apiError("Sweep failed", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"expired": expired})
}
