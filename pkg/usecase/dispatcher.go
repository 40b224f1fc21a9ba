package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/relwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
	"github.com/m-mizutani/relwatch/pkg/infra/metrics"
	"github.com/m-mizutani/relwatch/pkg/utils/async"
	"github.com/m-mizutani/relwatch/pkg/utils/shutdown"
)

// Dispatcher fans each received release out to every enabled alert provider
type Dispatcher struct {
	providers []interfaces.AlertProvider
	pool      *async.Pool
	timeout   time.Duration
	metrics   *metrics.Recorder
}

// DispatcherOption is a functional option for Dispatcher
type DispatcherOption func(*dispatcherConfig)

type dispatcherConfig struct {
	concurrency int64
	timeout     time.Duration
	metrics     *metrics.Recorder
}

// WithAlertConcurrency sets how many deliveries may run at the same time
func WithAlertConcurrency(n int64) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.concurrency = n
	}
}

// WithDeliveryTimeout bounds one delivery to one provider
func WithDeliveryTimeout(d time.Duration) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.timeout = d
	}
}

// WithDispatcherMetrics sets the metrics recorder
func WithDispatcherMetrics(recorder *metrics.Recorder) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.metrics = recorder
	}
}

func NewDispatcher(providers []interfaces.AlertProvider, opts ...DispatcherOption) *Dispatcher {
	cfg := &dispatcherConfig{
		concurrency: types.AlertConcurrency,
		timeout:     types.DeliveryTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Dispatcher{
		providers: providers,
		pool:      async.NewPool(cfg.concurrency),
		timeout:   cfg.timeout,
		metrics:   cfg.metrics,
	}
}

// Enabled returns the providers that have a webhook URL
func (d *Dispatcher) Enabled() []interfaces.AlertProvider {
	var enabled []interfaces.AlertProvider
	for _, p := range d.providers {
		if p.Enabled() {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

// Run consumes releases until shutdown is observed through sig, ctx is done,
// or releases is closed, whichever comes first. Deliveries that already
// started are waited for before Run returns.
func (d *Dispatcher) Run(ctx context.Context, sig *shutdown.Handle, releases <-chan *model.Release) {
	logger := ctxlog.From(ctx)
	logger.Info("Start dispatching alerts", "providers", len(d.Enabled()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sig.Context(), cancel)
	defer stop()

	defer d.pool.Wait()

	for {
		if ctx.Err() != nil || sig.IsShutdown() {
			d.stop(ctx, releases)
			return
		}

		select {
		case <-ctx.Done():
			d.stop(ctx, releases)
			return

		case release, ok := <-releases:
			if !ok {
				logger.Info("Release queue closed, alert dispatcher is stopping")
				return
			}
			d.Dispatch(ctx, release)
		}
	}
}

// stop discards releases still buffered in the queue. They are already
// persisted, so they are logged for manual follow-up.
func (d *Dispatcher) stop(ctx context.Context, releases <-chan *model.Release) {
	logger := ctxlog.From(ctx)

	var dropped []types.RepoName
	for drained := false; !drained; {
		select {
		case release, ok := <-releases:
			if !ok {
				drained = true
				break
			}
			dropped = append(dropped, release.Name)
		default:
			drained = true
		}
	}

	if len(dropped) > 0 {
		logger.Warn("Releases dropped by shutdown before dispatch",
			"count", len(dropped),
			"repos", dropped,
		)
	}
	logger.Info("Alert dispatcher is stopping")
}

// Dispatch starts one delivery per enabled provider. It blocks only while
// waiting for permits. A failing provider affects neither the other providers
// nor later releases.
func (d *Dispatcher) Dispatch(ctx context.Context, release *model.Release) {
	logger := ctxlog.From(ctx).With(
		"alert_id", uuid.NewString(),
		"repo", release.Name,
		"tag_name", release.Detail.TagName,
	)
	ctx = ctxlog.With(ctx, logger)

	enabled := d.Enabled()
	if len(enabled) == 0 {
		logger.Warn("No alert provider is enabled, release is not sent")
		return
	}

	for _, provider := range enabled {
		err := d.pool.Go(ctx, func(ctx context.Context) error {
			d.deliver(ctx, provider, release)
			return nil
		})
		if err != nil {
			logger.Warn("Alert dropped by shutdown", "provider", provider.Kind(), "error", err)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, provider interfaces.AlertProvider, release *model.Release) {
	logger := ctxlog.From(ctx).With("provider", provider.Kind())

	// A delivery that holds a permit is finished even during shutdown, bounded
	// by its own timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := provider.Send(ctx, release); err != nil {
		d.metrics.Alert(provider.Kind(), false)
		logger.Error("Failed to send alert", "error", err)
		return
	}

	d.metrics.Alert(provider.Kind(), true)
	logger.Info("Sent alert")
}
