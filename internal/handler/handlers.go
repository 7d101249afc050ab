package handler

import (
	"github.com/deppfellow/magnetite/internal/server"
	"github.com/deppfellow/magnetite/internal/service"
)

type Handlers struct {
	Health *HealthHandler
	Page   *PageHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(s, services.Content),
		Page:   NewPageHandler(s, services.Content),
	}
}
