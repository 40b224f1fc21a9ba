package usecase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
	"github.com/m-mizutani/relwatch/pkg/infra/metrics"
)

// Puller owns the polling state of one repository during one cycle. It is
// not safe for concurrent use; the scheduler creates one per repository per
// cycle.
type Puller struct {
	repo          model.Repo
	retryInterval time.Duration
	retryCount    uint

	fetcher  interfaces.ReleaseFetcher
	store    interfaces.ReleaseStore
	releases chan<- *model.Release
	metrics  *metrics.Recorder
}

// NewPuller creates a Puller with a fresh retry budget
func NewPuller(
	repo model.Repo,
	retryInterval time.Duration,
	fetcher interfaces.ReleaseFetcher,
	store interfaces.ReleaseStore,
	releases chan<- *model.Release,
	recorder *metrics.Recorder,
) *Puller {
	return &Puller{
		repo:          repo,
		retryInterval: retryInterval,
		retryCount:    1,
		fetcher:       fetcher,
		store:         store,
		releases:      releases,
		metrics:       recorder,
	}
}

// RetryCount is 1 before the first attempt and grows by one on every retry
func (p *Puller) RetryCount() uint {
	return p.retryCount
}

// Run attempts to pull the repository until one attempt succeeds, the retry
// budget of types.RetryLimit is exhausted, or ctx is done. Attempts are
// separated by a fixed retry interval. The returned error is only for the
// caller's information; failures are already logged.
func (p *Puller) Run(ctx context.Context) error {
	logger := ctxlog.From(ctx).With("repo", p.repo.Name)
	ctx = ctxlog.With(ctx, logger)

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.retryInterval), types.RetryLimit),
		ctx,
	)

	notify := func(err error, wait time.Duration) {
		p.retryCount++
		p.metrics.Pull(metrics.PullFailed)
		logger.Warn("Failed to pull release, will retry",
			"error", err,
			"retry_count", p.retryCount,
			"retry_after", wait.String(),
		)
	}

	err := backoff.RetryNotify(func() error {
		if err := p.pull(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}, policy, notify)

	if err != nil {
		if ctx.Err() != nil {
			logger.Info("Pull cancelled", "retry_count", p.retryCount)
			return goerr.Wrap(ctx.Err(), "pull cancelled", goerr.V("repo", p.repo.Name))
		}
		p.metrics.Pull(metrics.PullExhausted)
		logger.Error("Gave up pulling release in this cycle",
			"error", err,
			"retry_count", p.retryCount,
		)
		return goerr.Wrap(err, "retry budget exhausted", goerr.V("repo", p.repo.Name))
	}

	return nil
}

// pull performs one attempt: fetch, compare with the store, then emit and
// persist on change.
func (p *Puller) pull(ctx context.Context) error {
	logger := ctxlog.From(ctx)

	detail, err := p.fetcher.FetchLatest(ctx, p.repo)
	if err != nil {
		return err
	}
	release := model.NewRelease(p.repo, *detail)

	exists, err := p.store.Exists(ctx, p.repo.Name)
	if err != nil {
		return goerr.Wrap(err, "failed to query release store", goerr.V("repo", p.repo.Name))
	}

	if !exists {
		if err := p.store.Put(ctx, p.repo.Name, release); err != nil {
			return goerr.Wrap(err, "failed to store baseline release", goerr.V("repo", p.repo.Name))
		}
		p.metrics.Pull(metrics.PullBaseline)
		logger.Info("Stored first observed release",
			"tag_name", release.Detail.TagName,
			"release_name", release.Detail.ReleaseName,
		)
		return nil
	}

	stored, err := p.store.Get(ctx, p.repo.Name)
	if err != nil {
		return goerr.Wrap(err, "failed to get stored release", goerr.V("repo", p.repo.Name))
	}

	if stored.Equal(release) {
		p.metrics.Pull(metrics.PullUnchanged)
		logger.Info("No new release", "tag_name", stored.Detail.TagName)
		return nil
	}

	logger.Info("Found new release",
		"tag_name", release.Detail.TagName,
		"release_name", release.Detail.ReleaseName,
		"previous_tag_name", stored.Detail.TagName,
	)

	// Emit before persisting: a crash in between re-detects the change on the
	// next run, so delivery is at least once.
	select {
	case p.releases <- release:
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "release queue not accepting", goerr.V("repo", p.repo.Name))
	}

	if err := p.store.Put(ctx, p.repo.Name, release); err != nil {
		return goerr.Wrap(err, "failed to store new release", goerr.V("repo", p.repo.Name))
	}
	p.metrics.Pull(metrics.PullChanged)
	logger.Debug("Updated stored release", "tag_name", release.Detail.TagName)

	return nil
}
