package router

import (
	"github.com/deppfellow/magnetite/internal/handler"
	"github.com/deppfellow/magnetite/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerSystemRoutes registers endpoints that are not content.
func registerSystemRoutes(r *echo.Echo, s *server.Server, h *handler.Handlers) {
	if obs := s.Config.Observability; obs == nil || obs.HealthChecks.Enabled {
		r.GET("/status", h.Health.CheckHealth)
	}

	r.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})))
}

// registerPageRoutes sends every other GET to the page renderer, so the
// request path is the page path.
func registerPageRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/*", h.Page.ServePage())
}
