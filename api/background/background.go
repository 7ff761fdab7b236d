package background

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Background tracks fire-and-forget tasks so the server can drain them on
// shutdown instead of dropping work on the floor.
type Background struct {
	log    logrus.FieldLogger
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func New(log logrus.FieldLogger) *Background {
	ctx, cancel := context.WithCancel(context.Background())
	return &Background{log: log, ctx: ctx, cancel: cancel}
}

// Add runs fn in its own goroutine. Panics are recovered and logged: a
// background task must never take the server down.
func (b *Background) Add(fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithField("message", rec).Error("background task panicked")
			}
		}()
		fn(b.ctx)
	}()
}

// Shutdown waits for running tasks to finish, up to ctx's deadline. Tasks
// still running after that are cancelled through their context.
func (b *Background) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.cancel()
		return ctx.Err()
	}
}
