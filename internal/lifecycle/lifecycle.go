// Package lifecycle owns process shutdown: one context that is cancelled on
// SIGINT/SIGTERM, on Shutdown, or when any tracked task fails, and a tracker
// that joins every task before the process exits.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Controller tracks long-running tasks under a shared cancellation signal.
type Controller struct {
	ctx    context.Context
	cancel context.CancelFunc
	stop   context.CancelFunc
	group  *errgroup.Group
	logger zerolog.Logger
}

// New returns a Controller whose context derives from parent and is
// cancelled on SIGINT or SIGTERM.
func New(parent context.Context, logger *zerolog.Logger) *Controller {
	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	group, groupCtx := errgroup.WithContext(sigCtx)
	ctx, cancel := context.WithCancel(groupCtx)

	return &Controller{
		ctx:    ctx,
		cancel: cancel,
		stop:   stop,
		group:  group,
		logger: logger.With().Str("component", "lifecycle").Logger(),
	}
}

// Context is cancelled when shutdown begins, for whatever reason.
func (c *Controller) Context() context.Context {
	return c.ctx
}

// Go runs fn as a tracked task. A non-nil error from fn cancels Context for
// every other task.
func (c *Controller) Go(name string, fn func(ctx context.Context) error) {
	c.group.Go(func() error {
		c.logger.Debug().Str("task", name).Msg("task started")

		err := fn(c.ctx)
		if err != nil {
			c.logger.Error().Err(err).Str("task", name).Msg("task failed")
			return err
		}

		c.logger.Debug().Str("task", name).Msg("task finished")
		return nil
	})
}

// Shutdown broadcasts the stop signal. It does not wait.
func (c *Controller) Shutdown() {
	c.cancel()
}

// Wait blocks until every task has returned and reports the first error.
func (c *Controller) Wait() error {
	err := c.group.Wait()
	c.cancel()
	c.stop()
	return err
}
