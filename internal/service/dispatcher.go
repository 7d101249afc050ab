package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deppfellow/magnetite/internal/cache"
	"github.com/deppfellow/magnetite/internal/errs"
	"github.com/deppfellow/magnetite/internal/model"
	pkgerrors "github.com/pkg/errors"
)

// Run is the command loop. It handles one command at a time, to completion,
// in arrival order, until the queue is closed (remaining commands are
// handled first) or ctx is cancelled (checked between commands).
//
// On return the service stops accepting commands, answers anything still
// queued with errs.ErrChannelClosed and closes the cache.
func (s *ContentService) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("content service is already running")
	}
	defer s.shutdown()

	s.logger.Info().Int("queue_capacity", cap(s.queue)).Msg("content service started")

	for {
		if ctx.Err() != nil {
			s.logger.Info().Msg("content service stopping: context cancelled")
			return nil
		}

		select {
		case cmd, ok := <-s.queue:
			if !ok {
				s.logger.Info().Msg("content service stopping: queue closed")
				return nil
			}
			s.dispatch(cmd)
		case <-ctx.Done():
			s.logger.Info().Msg("content service stopping: context cancelled")
			return nil
		}
	}
}

func (s *ContentService) shutdown() {
	s.stopOnce.Do(func() { close(s.stopping) })

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	dropped := 0
	for cmd := range s.queue {
		cmd.fail(errs.ErrChannelClosed)
		dropped++
	}
	if dropped > 0 {
		s.logger.Warn().Int("count", dropped).Msg("rejected queued commands on shutdown")
	}

	s.cache.Close()
	close(s.done)
	s.logger.Info().Msg("content service stopped")
}

// dispatch handles one command. A panic is confined to the command that
// caused it: its caller gets errs.ErrReplyLost and the loop carries on.
func (s *ContentService) dispatch(cmd command) {
	defer func() {
		if r := recover(); r != nil {
			err := pkgerrors.WithStack(fmt.Errorf("panic handling %T: %v", cmd, r))
			s.logger.Error().Stack().Err(err).Msg("recovered panic in content service")
			cmd.abandon()
		}
	}()

	if err := cmd.cmdContext().Err(); err != nil {
		cmd.fail(err)
		return
	}

	switch c := cmd.(type) {
	case *getPageCmd:
		s.handleGetPage(c)
	case *setPageCmd:
		err := s.storeCall(c.ctx, "update_page", func(ctx context.Context) error {
			return s.store.UpdatePage(ctx, c.page)
		})
		if err == nil {
			s.cache.SetPage(c.page)
		}
		c.respond(struct{}{}, err)
	case *newPageCmd:
		err := s.storeCall(c.ctx, "insert_page", func(ctx context.Context) error {
			return s.store.InsertPage(ctx, c.page)
		})
		if err == nil {
			s.cache.SetPage(c.page)
		}
		c.respond(struct{}{}, err)
	case *deletePageCmd:
		err := s.storeCall(c.ctx, "delete_page", func(ctx context.Context) error {
			return s.store.DeletePage(ctx, c.path)
		})
		if err == nil {
			s.cache.Delete(cache.PageKey(c.path))
		}
		c.respond(struct{}{}, err)
	case *getUserCmd:
		s.handleGetUser(c)
	case *setUserCmd:
		err := s.storeCall(c.ctx, "update_user", func(ctx context.Context) error {
			return s.store.UpdateUser(ctx, c.user)
		})
		if err == nil {
			s.cache.SetUser(c.user)
		}
		c.respond(struct{}{}, err)
	case *newUserCmd:
		err := s.storeCall(c.ctx, "insert_user", func(ctx context.Context) error {
			return s.store.InsertUser(ctx, c.user)
		})
		if err == nil {
			s.cache.SetUser(c.user)
		}
		c.respond(struct{}{}, err)
	case *deleteUserCmd:
		err := s.storeCall(c.ctx, "delete_user", func(ctx context.Context) error {
			return s.store.DeleteUser(ctx, c.id)
		})
		if err == nil {
			s.cache.Delete(cache.UserKey(c.id))
		}
		c.respond(struct{}{}, err)
	default:
		panic(fmt.Sprintf("unknown command %T", cmd))
	}
}

func (s *ContentService) handleGetPage(c *getPageCmd) {
	if !c.skipCache {
		if page, ok := s.cache.GetPage(c.path); ok {
			s.metrics.CacheHit("page")
			c.respond(page, nil)
			return
		}
		s.metrics.CacheMiss("page")
	}

	var page model.Page
	err := s.storeCall(c.ctx, "get_page", func(ctx context.Context) error {
		var err error
		page, err = s.store.GetPage(ctx, c.path)
		return err
	})
	if err != nil {
		c.fail(err)
		return
	}

	s.cache.SetPage(page)
	c.respond(page, nil)
}

func (s *ContentService) handleGetUser(c *getUserCmd) {
	if !c.skipCache {
		if user, ok := s.cache.GetUser(c.id); ok {
			s.metrics.CacheHit("user")
			c.respond(user, nil)
			return
		}
		s.metrics.CacheMiss("user")
	}

	var user model.AdminUser
	err := s.storeCall(c.ctx, "get_user", func(ctx context.Context) error {
		var err error
		user, err = s.store.GetUser(ctx, c.id)
		return err
	})
	if err != nil {
		c.fail(err)
		return
	}

	s.cache.SetUser(user)
	c.respond(user, nil)
}

// storeCall runs fn detached from the caller's cancellation, so a store
// operation that has started always runs to completion, but bounded by the
// configured store timeout.
func (s *ContentService) storeCall(cmdCtx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx := context.WithoutCancel(cmdCtx)
	if s.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, errs.ErrStoreUnavailable) {
		err = fmt.Errorf("%w: %s: %w", errs.ErrStoreUnavailable, op, err)
	}
	took := time.Since(start)

	s.metrics.StoreCall(op, took, err)

	switch {
	case err != nil && !errors.Is(err, errs.ErrNotFound):
		s.logger.Warn().Err(err).Str("op", op).Dur("took", took).Msg("store call failed")
	case s.slowStore > 0 && took > s.slowStore:
		s.logger.Warn().Str("op", op).Dur("took", took).Msg("slow store call")
	default:
		s.logger.Debug().Str("op", op).Dur("took", took).Msg("store call")
	}

	return err
}
