// Package http provides the HTTP server of the hospital backend.
package http

import (
	"slices"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/config"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/realtime"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/service"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/transport/http/middleware"
	v1 "github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/transport/http/v1"
)

// bodyLimit caps request bodies; the largest payload is a doctor bio.
const bodyLimit = "1M"

// corsConfig allows credentials only for explicit origins. Browsers refuse
// cookies on a wildcard response, so "*" serves same-origin dashboards and
// cookie-less public calls.
func corsConfig(origins []string) echomw.CORSConfig {
	return echomw.CORSConfig{
		AllowOrigins:     origins,
		AllowCredentials: !slices.Contains(origins, "*"),
	}
}

// NewServer creates and configures the HTTP server. hub may be nil, in
// which case the live feed is not mounted.
func NewServer(svc *service.Service, hub *realtime.Hub, cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(echomw.CORSWithConfig(corsConfig(cfg.CORSOrigins)))
	e.Use(echomw.BodyLimit(bodyLimit))

	api := e.Group("/api")
	v1.NewHandler(svc, cfg, logger).RegisterRoutes(api)

	if hub != nil {
		ws := realtime.NewServer(realtime.ServerConfig{
			PingInterval:   cfg.WSPingInterval,
			WriteTimeout:   cfg.WSWriteTimeout,
			ReadTimeout:    cfg.WSReadTimeout,
			MaxMessageSize: cfg.WSMaxMessageSize,
		}, hub, middleware.IsOperator(svc), logger)
		api.GET("/ws", ws.HandleWebSocket)
	}

	return e
}
