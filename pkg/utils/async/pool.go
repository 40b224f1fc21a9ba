package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/semaphore"
)

// Pool runs handlers concurrently with a fixed number of permits.
//
// A permit is acquired before the goroutine starts and is released only when
// the handler returns, so the limit bounds handlers that are running rather
// than the rate at which they are started.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewPool creates a Pool with size permits
func NewPool(size int64) *Pool {
	return &Pool{
		sem: semaphore.NewWeighted(size),
	}
}

// Go blocks until a permit is available, then runs handler in a new
// goroutine. It returns an error without running handler when ctx is done
// before a permit is acquired.
//
// The handler receives ctx. Errors returned by the handler and panics are
// logged, never propagated.
func (p *Pool) Go(ctx context.Context, handler func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return goerr.Wrap(err, "failed to acquire permit")
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				ctxlog.From(ctx).Error("panic in async handler",
					"recover", r,
					"stack", string(debug.Stack()))
				sentry.CurrentHub().Recover(r)
			}
		}()

		if err := handler(ctx); err != nil {
			ctxlog.From(ctx).Error("error in async handler", "error", err)
		}
	}()

	return nil
}

// Wait blocks until every handler started by Go has returned
func (p *Pool) Wait() {
	p.wg.Wait()
}
