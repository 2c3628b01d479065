// Package v1 provides the JSON API handlers mounted under /api.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/config"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/service"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/transport/http/middleware"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	config  *config.Config
	logger  zerolog.Logger
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, cfg *config.Config, logger zerolog.Logger) *Handler {
	return &Handler{
		service: svc,
		config:  cfg,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes registers the API routes on g, normally the /api group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	op := middleware.RequireOperator(h.service)

	g.GET("/health", h.Health)

	// Operator session
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.GET("/check-auth", h.CheckAuth)

	// Patients and visits
	g.POST("/patients", h.RegisterPatient)
	g.GET("/patients", h.ListPatients, op)
	g.GET("/patients/:id", h.GetPatient, op)
	g.PUT("/patients/:id", h.UpdatePatient, op)
	g.DELETE("/patients/:id", h.DeletePatient, op)
	g.POST("/visits", h.RecordVisit, op)
	g.GET("/visits", h.ListVisits, op)

	// Doctors and appointments
	g.GET("/doctors", h.ListDoctors)
	g.POST("/doctors", h.AddDoctor, op)
	g.PUT("/doctors/:id", h.UpdateDoctor, op)
	g.DELETE("/doctors/:id", h.DeleteDoctor, op)
	g.POST("/appointments", h.BookAppointment)
	g.GET("/appointments", h.ListAppointments, op)
	g.PUT("/appointments/:id", h.UpdateAppointment, op)

	// Messages and conversations
	g.POST("/messages", h.SendMessage)
	g.GET("/messages", h.ListMessages, op)
	g.PUT("/messages/:id/status", h.UpdateMessageStatus, op)
	g.PUT("/messages/:id/reply", h.ReplyToMessage, op)
	g.DELETE("/messages/clear-old", h.ClearOldMessages, op)
	g.DELETE("/messages/clear-all", h.ClearAllMessages, op)
	g.GET("/conversations", h.ListConversations, op)
	g.GET("/conversation/:conversation_id", h.GetConversation)
	g.PUT("/conversation/:conversation_id/read", h.MarkConversationRead, op)
	g.DELETE("/conversation/:conversation_id", h.DeleteConversation)
	g.GET("/patient-conversations", h.PatientConversations)

	// Replies
	g.POST("/replies", h.Reply, op)
	g.GET("/check-email-replies", h.CheckReplies, op)
	g.POST("/check-email-replies", h.CheckReplies, op)
	g.GET("/unmatched-replies", h.ListUnmatchedReplies, op)
	g.POST("/unmatched-replies/:id/assign", h.AssignUnmatchedReply, op)

	// Dashboard
	g.GET("/stats", h.Stats, op)
	g.GET("/test-email", h.TestEmail, op)
}

// Health reports store reachability and the schema version.
// GET /api/health
func (h *Handler) Health(c echo.Context) error {
	health, err := h.service.Health(c.Request().Context())
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", middleware.RequestIDFrom(c)).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"status":  "unhealthy",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  "healthy",
		"health":  health,
	})
}
