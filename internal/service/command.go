package service

import (
	"context"

	"github.com/deppfellow/magnetite/internal/model"
	"github.com/google/uuid"
)

// result is what the command loop sends back for one command.
type result[T any] struct {
	val T
	err error
}

// command is one unit of work for the command loop. Every command is
// answered exactly once: with respond/fail, or by abandon when handling it
// panicked.
type command interface {
	cmdContext() context.Context
	fail(err error)
	abandon()
}

// envelope carries a command's context and its single-use reply channel. The
// channel has capacity 1 so the loop never blocks on a caller that stopped
// waiting.
type envelope[T any] struct {
	ctx   context.Context
	reply chan result[T]
}

func newEnvelope[T any](ctx context.Context) envelope[T] {
	return envelope[T]{ctx: ctx, reply: make(chan result[T], 1)}
}

func (e envelope[T]) cmdContext() context.Context { return e.ctx }

func (e envelope[T]) respond(v T, err error) {
	e.reply <- result[T]{val: v, err: err}
}

func (e envelope[T]) fail(err error) {
	var zero T
	e.respond(zero, err)
}

// abandon closes the reply channel without a value. The waiting caller sees
// errs.ErrReplyLost.
func (e envelope[T]) abandon() { close(e.reply) }

type getPageCmd struct {
	envelope[model.Page]
	path      string
	skipCache bool
}

type setPageCmd struct {
	envelope[struct{}]
	page model.Page
}

type newPageCmd struct {
	envelope[struct{}]
	page model.Page
}

type deletePageCmd struct {
	envelope[struct{}]
	path string
}

type getUserCmd struct {
	envelope[model.AdminUser]
	id        uuid.UUID
	skipCache bool
}

type setUserCmd struct {
	envelope[struct{}]
	user model.AdminUser
}

type newUserCmd struct {
	envelope[struct{}]
	user model.AdminUser
}

type deleteUserCmd struct {
	envelope[struct{}]
	id uuid.UUID
}
