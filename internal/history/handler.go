package history

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/auth"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/dto"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/history", h.List)
	g.GET("/history/:id", h.Get)
	g.DELETE("/history/:id", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return shared.Unauthorized("unauthorized", "authentication required")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	category := c.QueryParam("category")

	recs, err := h.store.ListByOwner(c.Request().Context(), owner, category, limit, offset)
	if err != nil {
		h.logger.Error("history list failed", "owner", owner, "error", err)
		return shared.InternalError("list_failed", "failed to list submissions")
	}

	total, err := h.store.CountByOwner(c.Request().Context(), owner)
	if err != nil {
		return shared.InternalError("list_failed", "failed to count submissions")
	}

	resp := dto.HistoryListResponse{
		Entries: make([]dto.HistoryEntryResponse, 0, len(recs)),
		Total:   total,
	}
	for _, r := range recs {
		resp.Entries = append(resp.Entries, recordToResponse(r))
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Get(c echo.Context) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return shared.Unauthorized("unauthorized", "authentication required")
	}

	rec, err := h.store.GetByID(c.Request().Context(), owner, c.Param("id"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("submission_not_found", "submission not found")
		}
		return shared.InternalError("get_failed", "failed to get submission")
	}

	return c.JSON(http.StatusOK, recordToResponse(rec))
}

func (h *Handler) Delete(c echo.Context) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return shared.Unauthorized("unauthorized", "authentication required")
	}

	if err := h.store.Delete(c.Request().Context(), owner, c.Param("id")); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("submission_not_found", "submission not found")
		}
		return shared.InternalError("delete_failed", "failed to delete submission")
	}

	return c.NoContent(http.StatusNoContent)
}

func recordToResponse(r *Record) dto.HistoryEntryResponse {
	return dto.HistoryEntryResponse{
		ID:             r.ID,
		Category:       r.Category,
		Subcategory:    r.Subcategory,
		ItemCount:      r.ItemCount,
		EstimatedValue: r.EstimatedValue,
		Verdict:        r.Verdict,
		DurableURLs:    []string(r.DurableURLs),
		GhostStore:     r.GhostStoreName,
		GhostMargin:    r.GhostMargin,
		CreatedAt:      r.CreatedAt.UTC().Format(time.RFC3339),
	}
}
