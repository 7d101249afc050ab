package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/magnetite/internal/middleware"
	"github.com/deppfellow/magnetite/internal/server"
	"github.com/labstack/echo/v4"
)

// CacheSizer reports how many entries the content cache holds.
type CacheSizer interface {
	CacheLen() int
}

type HealthHandler struct {
	Handler
	cache CacheSizer
}

func NewHealthHandler(s *server.Server, cache CacheSizer) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
		cache:   cache,
	}
}

// CheckHealth pings the store and reports the cache size. An unreachable
// store answers 503.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	checks := map[string]any{}
	response := map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      checks,
	}

	timeout := 5 * time.Second
	if obs := h.server.Config.Observability; obs != nil && obs.HealthChecks.Timeout > 0 {
		timeout = obs.HealthChecks.Timeout
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
	defer cancel()

	storeStart := time.Now()
	isHealthy := true

	if err := h.server.Store.Ping(ctx); err != nil {
		isHealthy = false
		checks["store"] = map[string]any{
			"status":        "unhealthy",
			"driver":        h.server.Config.Database.Driver,
			"response_time": time.Since(storeStart).String(),
			"error":         err.Error(),
		}

		logger.Error().
			Err(err).
			Dur("response_time", time.Since(storeStart)).
			Msg("store health check failed")

		if app := h.server.LoggerService.GetApplication(); app != nil {
			app.RecordCustomEvent("HealthCheckError", map[string]any{
				"check_type":       "store",
				"operation":        "health_check",
				"error_type":       "store_unhealthy",
				"response_time_ms": time.Since(storeStart).Milliseconds(),
				"error_message":    err.Error(),
			})
		}
	} else {
		checks["store"] = map[string]any{
			"status":        "healthy",
			"driver":        h.server.Config.Database.Driver,
			"response_time": time.Since(storeStart).String(),
		}
	}

	checks["cache"] = map[string]any{
		"status":  "healthy",
		"entries": h.cache.CacheLen(),
	}

	if !isHealthy {
		response["status"] = "unhealthy"
		logger.Warn().Dur("total_duration", time.Since(start)).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Debug().Dur("total_duration", time.Since(start)).Msg("health check passed")

	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}
