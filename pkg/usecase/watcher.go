package usecase

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/relwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
	"github.com/m-mizutani/relwatch/pkg/infra/metrics"
	"github.com/m-mizutani/relwatch/pkg/utils/shutdown"
	"golang.org/x/sync/errgroup"
)

// Watcher runs periodic passes over every configured repository
type Watcher struct {
	repos         []model.Repo
	period        time.Duration
	retryInterval time.Duration
	concurrency   int

	fetcher  interfaces.ReleaseFetcher
	store    interfaces.ReleaseStore
	releases chan<- *model.Release
	metrics  *metrics.Recorder
	clock    clockwork.Clock
}

// WatcherOption is a functional option for Watcher
type WatcherOption func(*Watcher)

// WithClock replaces the clock used for the cycle period
func WithClock(clock clockwork.Clock) WatcherOption {
	return func(w *Watcher) {
		w.clock = clock
	}
}

// WithPullConcurrency sets how many repositories are pulled at the same time
func WithPullConcurrency(n int) WatcherOption {
	return func(w *Watcher) {
		w.concurrency = n
	}
}

// WithWatcherMetrics sets the metrics recorder
func WithWatcherMetrics(recorder *metrics.Recorder) WatcherOption {
	return func(w *Watcher) {
		w.metrics = recorder
	}
}

// NewWatcher creates a Watcher. Detected changes are sent to releases.
func NewWatcher(
	cfg *model.WatchConfig,
	fetcher interfaces.ReleaseFetcher,
	store interfaces.ReleaseStore,
	releases chan<- *model.Release,
	opts ...WatcherOption,
) *Watcher {
	w := &Watcher{
		repos:         cfg.RepoList,
		period:        cfg.Period,
		retryInterval: cfg.RetryInterval,
		concurrency:   types.PullConcurrency,
		fetcher:       fetcher,
		store:         store,
		releases:      releases,
		clock:         clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run repeats pass-then-sleep cycles until shutdown is observed through sig
// or ctx is done. Shutdown cancels the running pass and the sleep, and no new
// cycle starts afterwards.
func (w *Watcher) Run(ctx context.Context, sig *shutdown.Handle) {
	logger := ctxlog.From(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sig.Context(), cancel)
	defer stop()

	for cycle := 1; !sig.IsShutdown(); cycle++ {
		logger.Info("Start watching repository releases", "cycle", cycle, "repos", len(w.repos))
		w.Pass(ctx)

		if ctx.Err() != nil {
			break
		}
		logger.Info("Completed watching repository releases", "cycle", cycle, "next_in", w.period.String())

		select {
		case <-ctx.Done():
		case <-w.clock.After(w.period):
		}
		if ctx.Err() != nil {
			break
		}
	}

	logger.Info("Watcher is stopping")
}

// Pass pulls every repository once, at most concurrency at a time, and
// returns when all pulls have finished or given up. Each pull holds its slot
// until it returns, including retry waits.
func (w *Watcher) Pass(ctx context.Context) {
	var eg errgroup.Group
	eg.SetLimit(w.concurrency)

	for _, repo := range w.repos {
		if ctx.Err() != nil {
			break
		}

		puller := NewPuller(repo, w.retryInterval, w.fetcher, w.store, w.releases, w.metrics)
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			_ = puller.Run(ctx)
			return nil
		})
	}

	_ = eg.Wait()
}
