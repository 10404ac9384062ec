package chat

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/planoeducation/planoeducation/internal/domain"
)

// GetCallEvents returns the audit events of one relay call.
// GET /api/calls/:request_id/events
func (h *Handler) GetCallEvents(c echo.Context) error {
	requestID := c.Param("request_id")
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	if t := c.QueryParam("types"); t != "" {
		types = strings.Split(t, ",")
	}

	events, err := h.service.GetCallEvents(c.Request().Context(), requestID, afterTs, types, limit)
	if err != nil {
		return internalError(c, err)
	}
	if events == nil {
		events = []domain.Event{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"events": events,
	})
}
