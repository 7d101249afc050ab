package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newController(t *testing.T) *Controller {
	t.Helper()
	logger := zerolog.Nop()
	return New(context.Background(), &logger)
}

func waitWithTimeout(t *testing.T, c *Controller) error {
	t.Helper()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Wait() }()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
		return nil
	}
}

func TestShutdownStopsAllTasks(t *testing.T) {
	c := newController(t)

	var stopped atomic.Int32
	for _, name := range []string{"actor", "http", "sweep"} {
		c.Go(name, func(ctx context.Context) error {
			<-ctx.Done()
			stopped.Add(1)
			return nil
		})
	}

	c.Shutdown()
	if err := waitWithTimeout(t, c); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := stopped.Load(); got != 3 {
		t.Fatalf("stopped tasks = %d, want 3", got)
	}
}

func TestTaskFailureCancelsOthers(t *testing.T) {
	c := newController(t)
	boom := errors.New("boom")

	c.Go("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	c.Go("failer", func(context.Context) error {
		return boom
	})

	if err := waitWithTimeout(t, c); !errors.Is(err, boom) {
		t.Fatalf("Wait = %v, want %v", err, boom)
	}
	if c.Context().Err() == nil {
		t.Fatal("context should be cancelled after Wait")
	}
}

func TestParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	logger := zerolog.Nop()
	c := New(parent, &logger)

	c.Go("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	cancel()
	if err := waitWithTimeout(t, c); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}
