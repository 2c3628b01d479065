package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GET /api/stats
func (h *Handler) Stats(c echo.Context) error {
	st, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to fetch stats")
	}
	return ok(c, http.StatusOK, payload{"stats": st})
}

// TestEmail sends a test message to the hospital address.
// GET /api/test-email
func (h *Handler) TestEmail(c echo.Context) error {
	id, err := h.service.SendTestEmail(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to send test email")
	}
	return ok(c, http.StatusOK, payload{"message": "Test email sent", "message_id": id})
}
