package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Health is the liveness probe used by load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// BreakerState reports the state of the event publisher's breaker.
type BreakerState interface {
	State() gobreaker.State
}

// HealthHandler extends Health with the event publisher's state.  The
// service stays live while the breaker is open; it only reports
// "degraded".
type HealthHandler struct {
	Events BreakerState // nil when events are disabled
}

func NewHealthHandler(events BreakerState) *HealthHandler {
	return &HealthHandler{Events: events}
}

func (h *HealthHandler) Health(c echo.Context) error {
	if h.Events == nil {
		return Health(c)
	}
	state := h.Events.State()
	status := "ok"
	if state == gobreaker.StateOpen {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, echo.Map{"status": status, "events": state.String()})
}
