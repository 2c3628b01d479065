package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SessionCookie is the name of the operator session cookie.
const SessionCookie = "authToken"

const operatorKey = "operator"

// SessionVerifier validates a session token and returns the operator name.
type SessionVerifier interface {
	VerifySession(token string) (string, error)
}

// Operator returns the operator name of a valid session cookie, or "".
func Operator(c echo.Context, v SessionVerifier) string {
	if name, ok := c.Get(operatorKey).(string); ok && name != "" {
		return name
	}
	cookie, err := c.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	name, err := v.VerifySession(cookie.Value)
	if err != nil {
		return ""
	}
	c.Set(operatorKey, name)
	return name
}

// IsOperator adapts Operator to a predicate.
func IsOperator(v SessionVerifier) func(c echo.Context) bool {
	return func(c echo.Context) bool {
		return Operator(c, v) != ""
	}
}

// RequireOperator rejects requests without a valid session cookie.
func RequireOperator(v SessionVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Operator(c, v) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"error":   "Unauthorized",
				})
			}
			return next(c)
		}
	}
}
