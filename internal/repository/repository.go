// Package repository handles all interactions with the persistent store.
//
// Store is the contract the content service drives. Implementations map
// driver failures onto the errs sentinels: a missing row is errs.ErrNotFound,
// a duplicate key on insert errs.ErrConflict and a connection or transport
// failure errs.ErrStoreUnavailable. The driver error stays reachable with
// errors.As.
package repository

import (
	"context"

	"github.com/deppfellow/magnetite/internal/model"
	"github.com/google/uuid"
)

// Store persists pages and admin users.
//
// The content service calls a Store from a single goroutine, but
// implementations must still be safe for concurrent use because health
// checks ping it from request handlers.
type Store interface {
	GetPage(ctx context.Context, path string) (model.Page, error)
	// UpdatePage overwrites every column of the page at page.Path. It returns
	// errs.ErrNotFound when no such page exists.
	UpdatePage(ctx context.Context, page model.Page) error
	InsertPage(ctx context.Context, page model.Page) error
	// DeletePage removes the page at path. Deleting a missing page is not an
	// error.
	DeletePage(ctx context.Context, path string) error

	GetUser(ctx context.Context, id uuid.UUID) (model.AdminUser, error)
	UpdateUser(ctx context.Context, user model.AdminUser) error
	InsertUser(ctx context.Context, user model.AdminUser) error
	DeleteUser(ctx context.Context, id uuid.UUID) error

	Ping(ctx context.Context) error
	Close() error
}
