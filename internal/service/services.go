package service

import (
	"context"

	"github.com/deppfellow/magnetite/internal/cache"
	"github.com/deppfellow/magnetite/internal/server"
)

// Services groups the application's services.
type Services struct {
	Content *ContentService
}

// NewServices builds the content service and its cache over s.Store. The
// cache sweep is parented on ctx. Content.Run still has to be started.
func NewServices(ctx context.Context, s *server.Server) *Services {
	c := cache.New(ctx, cache.Config{
		TTL:           s.Config.Cache.TTL,
		SweepInterval: s.Config.Cache.SweepInterval,
	}, s.Logger, cache.WithMetrics(s.Metrics))

	var opts []Option
	if obs := s.Config.Observability; obs != nil {
		opts = append(opts, WithSlowStoreThreshold(obs.Logging.SlowQueryThreshold))
	}

	return &Services{
		Content: NewContentService(s.Store, c, s.Config.Actor, s.Logger, s.Metrics, opts...),
	}
}
