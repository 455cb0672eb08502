package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-booking/internal/repository"
)

// ActivityLog reads back consumed activity events.
type ActivityLog interface {
	Recent(ctx context.Context, limit int) ([]repository.ActivityRecord, error)
}

// ActivityHandler exposes the activity log to the operator.
type ActivityHandler struct {
	base
	Log ActivityLog
}

func NewActivityHandler(l ActivityLog, log zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{base: base{log: log}, Log: l}
}

// Recent returns the newest ?limit events (default 50, at most 500),
// each as the event document that was published.
func (h *ActivityHandler) Recent(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = min(n, 500)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	recs, err := h.Log.Recent(ctx, limit)
	if err != nil {
		return h.respondError(c, err)
	}
	out := make([]json.RawMessage, 0, len(recs))
	for _, r := range recs {
		out = append(out, json.RawMessage(r.Payload))
	}
	return c.JSON(http.StatusOK, out)
}
