// Package router builds the echo instance: the middleware stack in order,
// the global error handler and the route table.
package router

import (
	"github.com/deppfellow/magnetite/internal/handler"
	"github.com/deppfellow/magnetite/internal/middleware"
	"github.com/deppfellow/magnetite/internal/server"
	"github.com/labstack/echo/v4"
)

func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	// Order matters: the request logger and tracing read the request ID and
	// the per-request logger set by the middlewares before them.
	router.Use(
		middlewares.Tracing.NewRelicMiddleware(),
		middleware.RequestID(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
	)

	registerSystemRoutes(router, s, h)
	registerPageRoutes(router, h)

	return router
}
