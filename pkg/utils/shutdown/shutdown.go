// Package shutdown coordinates graceful termination of independently running
// subsystems. A single trigger is broadcast to every subscriber, and the owner
// waits until each subscriber has reported that it drained its work.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Coordinator owns the broadcast signal and the completion handshake
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	errMu sync.Mutex
	err   error
}

// New creates a Coordinator. Cancelling parent has the same effect as Trigger.
func New(parent context.Context) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Subscribe registers one subsystem and returns its Handle. The subsystem
// must call Handle.Done exactly when it has stopped; Wait does not return
// before that.
func (c *Coordinator) Subscribe() *Handle {
	c.wg.Add(1)
	return &Handle{
		coord: c,
		done:  sync.OnceFunc(c.wg.Done),
	}
}

// Trigger broadcasts termination to every Handle. It may be called many times.
func (c *Coordinator) Trigger() {
	c.cancel()
}

// Triggered is closed once termination has been broadcast
func (c *Coordinator) Triggered() <-chan struct{} {
	return c.ctx.Done()
}

// TriggerOnSignal calls Trigger when one of signals is received. The returned
// function stops listening.
func (c *Coordinator) TriggerOnSignal(signals ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	stopped := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			ctxlog.From(c.ctx).Info("Signal received, shutting down", "signal", sig.String())
			c.Trigger()
		case <-c.ctx.Done():
		case <-stopped:
		}
	}()

	return sync.OnceFunc(func() {
		signal.Stop(ch)
		close(stopped)
	})
}

// Wait blocks until every subscribed Handle has called Done, or until ctx
// is done. It does not trigger termination by itself.
func (c *Coordinator) Wait(ctx context.Context) error {
	drained := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "subsystems did not drain in time")
	}
}

// Err returns the first error reported with Handle.Fail
func (c *Coordinator) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Coordinator) fail(err error) {
	c.errMu.Lock()
	recorded := c.err == nil
	if recorded {
		c.err = err
	}
	c.errMu.Unlock()

	if recorded {
		ctxlog.From(c.ctx).Error("Unrecoverable error, shutting down", "error", err)
	}
	c.Trigger()
}

// Handle is the subscriber end owned by one subsystem
type Handle struct {
	coord   *Coordinator
	latched atomic.Bool
	done    func()
}

// Context is cancelled when termination is broadcast. Pass it to every unit
// of work the subsystem spawns.
func (h *Handle) Context() context.Context {
	return h.coord.ctx
}

// Wait blocks until termination is broadcast. After the first return every
// later call returns immediately.
func (h *Handle) Wait() {
	if h.latched.Load() {
		return
	}
	<-h.coord.ctx.Done()
	h.latched.Store(true)
}

// IsShutdown reports whether termination has been observed. It never blocks.
func (h *Handle) IsShutdown() bool {
	if h.latched.Load() {
		return true
	}
	if h.coord.ctx.Err() != nil {
		h.latched.Store(true)
		return true
	}
	return false
}

// Done reports that the subsystem has drained. Extra calls are ignored.
func (h *Handle) Done() {
	h.done()
}

// Fail records an unrecoverable error and triggers termination of every
// subsystem. Only the first reported error is kept.
func (h *Handle) Fail(err error) {
	h.coord.fail(err)
}
