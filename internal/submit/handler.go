package submit

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/auth"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/capture"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/dto"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	service *Service
	manager *capture.Manager
	logger  *slog.Logger
}

func NewHandler(service *Service, manager *capture.Manager, logger *slog.Logger) *Handler {
	return &Handler{service: service, manager: manager, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/sessions/:id/submit", h.Submit)
}

func (h *Handler) Submit(c echo.Context) error {
	token, err := auth.Token(c)
	if err != nil {
		return shared.Unauthorized("unauthorized", "authentication required")
	}
	owner, err := auth.Owner(c)
	if err != nil {
		return shared.Unauthorized("unauthorized", "authentication required")
	}

	sess, err := h.manager.GetOwned(c.Param("id"), owner)
	if err != nil {
		return shared.NotFound("session_not_found", "session not found")
	}

	var req dto.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "invalid request body")
	}

	result, err := h.service.Submit(c.Request().Context(), sess, token, req.Category, req.Subcategory)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrValidation):
			return shared.BadRequest("invalid_submission", err.Error())
		case errors.Is(err, shared.ErrPayloadTooLarge):
			return shared.PayloadTooLarge("payload_too_large", "submission rejected by analysis service, retry with fewer items")
		default:
			h.logger.Error("submission failed", "session_id", sess.ID(), "error", err)
			return shared.InternalError("submit_failed", "submission failed")
		}
	}

	return c.JSON(http.StatusOK, resultToResponse(result))
}

func resultToResponse(r *Result) dto.SubmitResponse {
	resp := dto.SubmitResponse{
		SubmissionID:   r.SubmissionID,
		EstimatedValue: r.Analysis.EstimatedValue,
		Confidence:     r.Analysis.Confidence,
		Verdict:        r.Analysis.Verdict,
		Summary:        r.Analysis.Summary,
		ItemCount:      len(r.DurableURLs) + r.FailedCount,
		DurableURLs:    r.DurableURLs,
		FailedUploads:  r.FailedCount,
	}
	if r.GhostOutcome != nil {
		resp.Ghost = &dto.GhostOutcomeResponse{
			EstimatedMargin: r.GhostOutcome.EstimatedMargin,
			MarginPercent:   r.GhostOutcome.MarginPercent,
			Velocity:        string(r.GhostOutcome.Velocity),
		}
	}
	return resp
}
