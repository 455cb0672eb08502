package middleware

import "github.com/labstack/echo/v4"

// operator returns the authenticated operator name, or "anon" on public
// routes.
func operator(c echo.Context) string {
	if s, ok := c.Get(CtxOperator).(string); ok && s != "" {
		return s
	}
	return "anon"
}
