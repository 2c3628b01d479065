package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/transport/http/middleware"
)

func (h *Handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !h.config.IsDev(),
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
	if value == "" {
		cookie.MaxAge = -1
	}
	return cookie
}

// Login verifies the operator credential and sets the session cookie.
// POST /api/login
func (h *Handler) Login(c echo.Context) error {
	var req domain.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	sess, err := h.service.Login(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err, "Login failed")
	}

	c.SetCookie(h.sessionCookie(sess.Token, sess.ExpiresAt))
	return ok(c, http.StatusOK, payload{"message": "Login successful", "username": sess.Username})
}

// Logout clears the session cookie.
// POST /api/logout
func (h *Handler) Logout(c echo.Context) error {
	c.SetCookie(h.sessionCookie("", time.Unix(0, 0)))
	return ok(c, http.StatusOK, payload{"message": "Logged out"})
}

// CheckAuth reports whether the request carries a valid session.
// GET /api/check-auth
func (h *Handler) CheckAuth(c echo.Context) error {
	name := middleware.Operator(c, h.service)
	return c.JSON(http.StatusOK, payload{"authenticated": name != "", "username": name})
}
