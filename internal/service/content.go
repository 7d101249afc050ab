// Package service contains the content service: the single point through
// which every page and admin-user read or write reaches the store.
//
// ContentService methods are safe for concurrent use. Each call becomes a
// command on a bounded queue; one goroutine (Run) executes commands in
// arrival order against the cache and the store, so all mutations are
// totally ordered.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deppfellow/magnetite/internal/cache"
	"github.com/deppfellow/magnetite/internal/config"
	"github.com/deppfellow/magnetite/internal/errs"
	"github.com/deppfellow/magnetite/internal/metrics"
	"github.com/deppfellow/magnetite/internal/model"
	"github.com/deppfellow/magnetite/internal/repository"
	"github.com/deppfellow/magnetite/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContentService is the request facade and, through Run, the command loop.
type ContentService struct {
	store        repository.Store
	cache        *cache.Cache
	metrics      metrics.Recorder
	logger       zerolog.Logger
	storeTimeout time.Duration
	slowStore    time.Duration

	// mu guards closed and the close of queue. Submitters hold the read
	// lock while sending.
	mu     sync.RWMutex
	closed bool
	queue  chan command

	stopOnce sync.Once
	stopping chan struct{}
	done     chan struct{}
	running  atomic.Bool
}

// Option customizes a ContentService.
type Option func(*ContentService)

// WithSlowStoreThreshold logs store calls that take longer than d at warn
// level. Zero disables it.
func WithSlowStoreThreshold(d time.Duration) Option {
	return func(s *ContentService) { s.slowStore = d }
}

// NewContentService creates a service over store and c. The service owns c
// and closes it when Run returns. Run must be started for calls to make
// progress.
func NewContentService(store repository.Store, c *cache.Cache, cfg *config.ActorConfig, logger *zerolog.Logger, rec metrics.Recorder, opts ...Option) *ContentService {
	if rec == nil {
		rec = metrics.Noop{}
	}
	s := &ContentService{
		store:        store,
		cache:        c,
		metrics:      rec,
		logger:       logger.With().Str("component", "content_service").Logger(),
		storeTimeout: cfg.StoreTimeout,
		queue:        make(chan command, cfg.QueueCapacity),
		stopping:     make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close stops accepting commands. Commands already queued are still handled
// by Run before it returns. Close does not wait; use Done for that. It is
// idempotent and safe to call concurrently with other methods.
func (s *ContentService) Close() {
	s.stopOnce.Do(func() { close(s.stopping) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
}

// Done is closed once Run has returned and the cache sweep has stopped.
func (s *ContentService) Done() <-chan struct{} {
	return s.done
}

// CacheLen reports how many entries the cache holds.
func (s *ContentService) CacheLen() int {
	return s.cache.Len()
}

// GetPage returns the page at path. With skipCache the store is always read;
// the result still refreshes the cache.
func (s *ContentService) GetPage(ctx context.Context, path string, skipCache bool) (model.Page, error) {
	cmd := &getPageCmd{envelope: newEnvelope[model.Page](ctx), path: path, skipCache: skipCache}
	return call(ctx, s, cmd, cmd.reply)
}

// SetPage overwrites an existing page. It returns errs.ErrNotFound if there
// is no page at page.Path.
func (s *ContentService) SetPage(ctx context.Context, page model.Page) error {
	if err := validation.Struct(page); err != nil {
		return err
	}
	cmd := &setPageCmd{envelope: newEnvelope[struct{}](ctx), page: page.Clone()}
	_, err := call(ctx, s, cmd, cmd.reply)
	return err
}

// NewPage creates a page. It returns errs.ErrConflict if the path is taken.
func (s *ContentService) NewPage(ctx context.Context, page model.Page) error {
	if err := validation.Struct(page); err != nil {
		return err
	}
	cmd := &newPageCmd{envelope: newEnvelope[struct{}](ctx), page: page.Clone()}
	_, err := call(ctx, s, cmd, cmd.reply)
	return err
}

// DeletePage removes the page at path. Deleting a missing page succeeds.
func (s *ContentService) DeletePage(ctx context.Context, path string) error {
	cmd := &deletePageCmd{envelope: newEnvelope[struct{}](ctx), path: path}
	_, err := call(ctx, s, cmd, cmd.reply)
	return err
}

// GetUser returns the admin user with id.
func (s *ContentService) GetUser(ctx context.Context, id uuid.UUID, skipCache bool) (model.AdminUser, error) {
	cmd := &getUserCmd{envelope: newEnvelope[model.AdminUser](ctx), id: id, skipCache: skipCache}
	return call(ctx, s, cmd, cmd.reply)
}

func (s *ContentService) SetUser(ctx context.Context, user model.AdminUser) error {
	if err := validation.Struct(user); err != nil {
		return err
	}
	cmd := &setUserCmd{envelope: newEnvelope[struct{}](ctx), user: user}
	_, err := call(ctx, s, cmd, cmd.reply)
	return err
}

func (s *ContentService) NewUser(ctx context.Context, user model.AdminUser) error {
	if err := validation.Struct(user); err != nil {
		return err
	}
	cmd := &newUserCmd{envelope: newEnvelope[struct{}](ctx), user: user}
	_, err := call(ctx, s, cmd, cmd.reply)
	return err
}

func (s *ContentService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	cmd := &deleteUserCmd{envelope: newEnvelope[struct{}](ctx), id: id}
	_, err := call(ctx, s, cmd, cmd.reply)
	return err
}

// call submits cmd and waits for its single reply.
func call[T any](ctx context.Context, s *ContentService, cmd command, reply chan result[T]) (T, error) {
	var zero T

	if err := s.submit(ctx, cmd); err != nil {
		return zero, err
	}

	select {
	case res, ok := <-reply:
		if !ok {
			return zero, errs.ErrReplyLost
		}
		return res.val, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// submit enqueues cmd, blocking while the queue is full.
func (s *ContentService) submit(ctx context.Context, cmd command) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errs.ErrChannelClosed
	}

	select {
	case s.queue <- cmd:
		return nil
	case <-s.stopping:
		return errs.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
