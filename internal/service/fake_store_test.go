package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deppfellow/magnetite/internal/errs"
	"github.com/deppfellow/magnetite/internal/model"
	"github.com/google/uuid"
)

// fakeStore is an in-memory Store that counts calls and records how many
// operations ever ran at the same time.
type fakeStore struct {
	mu    sync.Mutex
	pages map[string]model.Page
	users map[uuid.UUID]model.AdminUser
	calls map[string]int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	// panicPath makes GetPage panic for that path.
	panicPath string
	// block makes every call wait for its context.
	block bool
	// delay is slept inside every call.
	delay time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pages: make(map[string]model.Page),
		users: make(map[uuid.UUID]model.AdminUser),
		calls: make(map[string]int),
	}
}

func (f *fakeStore) enter(ctx context.Context, op string) (func(), error) {
	n := f.inFlight.Add(1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()

	leave := func() { f.inFlight.Add(-1) }

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.block {
		<-ctx.Done()
		leave()
		return nil, ctx.Err()
	}
	return leave, nil
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) GetPage(ctx context.Context, path string) (model.Page, error) {
	leave, err := f.enter(ctx, "get_page")
	if err != nil {
		return model.Page{}, err
	}
	defer leave()

	if path == f.panicPath && path != "" {
		panic("store exploded")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	page, ok := f.pages[path]
	if !ok {
		return model.Page{}, fmt.Errorf("get page %q: %w", path, errs.ErrNotFound)
	}
	return page.Clone(), nil
}

func (f *fakeStore) UpdatePage(ctx context.Context, page model.Page) error {
	leave, err := f.enter(ctx, "update_page")
	if err != nil {
		return err
	}
	defer leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pages[page.Path]; !ok {
		return fmt.Errorf("update page %q: %w", page.Path, errs.ErrNotFound)
	}
	f.pages[page.Path] = page.Clone()
	return nil
}

func (f *fakeStore) InsertPage(ctx context.Context, page model.Page) error {
	leave, err := f.enter(ctx, "insert_page")
	if err != nil {
		return err
	}
	defer leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pages[page.Path]; ok {
		return fmt.Errorf("insert page %q: %w", page.Path, errs.ErrConflict)
	}
	f.pages[page.Path] = page.Clone()
	return nil
}

func (f *fakeStore) DeletePage(ctx context.Context, path string) error {
	leave, err := f.enter(ctx, "delete_page")
	if err != nil {
		return err
	}
	defer leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pages, path)
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (model.AdminUser, error) {
	leave, err := f.enter(ctx, "get_user")
	if err != nil {
		return model.AdminUser{}, err
	}
	defer leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return model.AdminUser{}, fmt.Errorf("get admin %s: %w", id, errs.ErrNotFound)
	}
	return user, nil
}

func (f *fakeStore) UpdateUser(ctx context.Context, user model.AdminUser) error {
	leave, err := f.enter(ctx, "update_user")
	if err != nil {
		return err
	}
	defer leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return fmt.Errorf("update admin %s: %w", user.ID, errs.ErrNotFound)
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) InsertUser(ctx context.Context, user model.AdminUser) error {
	leave, err := f.enter(ctx, "insert_user")
	if err != nil {
		return err
	}
	defer leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; ok {
		return fmt.Errorf("insert admin %s: %w", user.ID, errs.ErrConflict)
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	leave, err := f.enter(ctx, "delete_user")
	if err != nil {
		return err
	}
	defer leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }
