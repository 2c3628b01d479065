package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/transport/http/middleware"
)

type payload map[string]interface{}

func ok(c echo.Context, status int, p payload) error {
	if p == nil {
		p = payload{}
	}
	p["success"] = true
	return c.JSON(status, p)
}

func badRequest(c echo.Context, reason string) error {
	return c.JSON(http.StatusBadRequest, payload{"success": false, "error": reason})
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("invalid " + name)
	}
	return id, nil
}

// fail maps a service error to a status code and a JSON body. Unexpected
// errors are logged with the request id; the client only sees a generic
// message, plus the cause in development.
func (h *Handler) fail(c echo.Context, err error, generic string) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return badRequest(c, verr.Reason)
	case errors.Is(err, domain.ErrValidation):
		return badRequest(c, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, payload{"success": false, "error": "Invalid credentials"})
	case errors.Is(err, domain.ErrConversationNotFound):
		return c.JSON(http.StatusNotFound, payload{"success": false, "error": "Conversation not found"})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, payload{"success": false, "error": "Not found"})
	case errors.Is(err, domain.ErrNoPatientMessage),
		errors.Is(err, domain.ErrDuplicateReply),
		errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrReplyCheckRunning):
		return c.JSON(http.StatusConflict, payload{"success": false, "error": err.Error()})
	case errors.Is(err, domain.ErrMailDisabled):
		return c.JSON(http.StatusServiceUnavailable, payload{"success": false, "error": err.Error()})
	}

	h.logger.Error().Err(err).
		Str("request_id", middleware.RequestIDFrom(c)).
		Str("path", c.Path()).
		Msg(generic)

	body := payload{"success": false, "error": generic}
	if h.config.IsDev() {
		body["details"] = err.Error()
	}
	return c.JSON(http.StatusInternalServerError, body)
}
