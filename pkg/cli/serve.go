package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/cli/config"
	controller "github.com/m-mizutani/relwatch/pkg/controller/http"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
	"github.com/m-mizutani/relwatch/pkg/infra/alert"
	"github.com/m-mizutani/relwatch/pkg/infra/github"
	"github.com/m-mizutani/relwatch/pkg/infra/metrics"
	"github.com/m-mizutani/relwatch/pkg/usecase"
	"github.com/m-mizutani/relwatch/pkg/utils/shutdown"
	"github.com/urfave/cli/v3"
)

const (
	serverShutdownTimeout = 10 * time.Second
	drainTimeout          = 30 * time.Second
)

func cmdServe() *cli.Command {
	var (
		watchCfg  config.Watch
		storeCfg  config.Store
		serverCfg config.Server
	)

	var flags []cli.Flag
	flags = append(flags, watchCfg.Flags()...)
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, serverCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Watch repositories and send alerts on new releases",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			cfg, err := watchCfg.Load()
			if err != nil {
				return goerr.Wrap(err, "failed to load watch config", goerr.T(types.ErrTagStartup))
			}
			logger.Info("Starting relwatch",
				slog.Any("config", cfg),
				slog.String("store", storeCfg.Backend),
				slog.String("addr", serverCfg.Addr),
			)

			db, err := storeCfg.New(ctx, cfg.DBPath)
			if err != nil {
				return goerr.Wrap(err, "failed to open release store", goerr.T(types.ErrTagStartup))
			}
			defer func() {
				if err := db.Close(); err != nil {
					logger.Warn("Failed to close release store", "error", err)
				}
			}()

			providers, err := alert.NewProviders(cfg.Alert)
			if err != nil {
				return goerr.Wrap(err, "failed to create alert providers", goerr.T(types.ErrTagStartup))
			}

			fetcherOpts := []github.Option{github.WithToken(cfg.Token)}
			if cfg.UserAgent != "" {
				fetcherOpts = append(fetcherOpts, github.WithUserAgent(cfg.UserAgent))
			}
			fetcher := github.NewClient(fetcherOpts...)

			recorder := metrics.New()
			releases := make(chan *model.Release, types.AlertQueueSize)

			watcher := usecase.NewWatcher(cfg, fetcher, db, releases,
				usecase.WithWatcherMetrics(recorder))
			dispatcher := usecase.NewDispatcher(providers,
				usecase.WithDispatcherMetrics(recorder))

			var server *controller.Server
			if serverCfg.Enabled() {
				server, err = controller.NewServer(ctx, db,
					controller.WithAddr(serverCfg.Addr),
					controller.WithMetrics(recorder),
					controller.WithRepoCount(len(cfg.RepoList)),
				)
				if err != nil {
					return goerr.Wrap(err, "failed to create status server", goerr.T(types.ErrTagStartup))
				}
			}

			coord := shutdown.New(ctx)
			stop := coord.TriggerOnSignal(os.Interrupt, syscall.SIGTERM)
			defer stop()

			watchSig := coord.Subscribe()
			go func() {
				defer watchSig.Done()
				defer close(releases)
				watcher.Run(ctx, watchSig)
			}()

			dispatchSig := coord.Subscribe()
			go func() {
				defer dispatchSig.Done()
				dispatcher.Run(ctx, dispatchSig, releases)
			}()

			if server != nil {
				serverSig := coord.Subscribe()
				go func() {
					defer serverSig.Done()
					logger.Info("Status server starting", slog.String("addr", serverCfg.Addr))
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						serverSig.Fail(goerr.Wrap(err, "status server failed",
							goerr.V("addr", serverCfg.Addr)))
					}
				}()
			}

			<-coord.Triggered()
			logger.Info("Shutting down")

			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Failed to shutdown status server gracefully", "error", err)
				}
			}

			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
			defer cancel()
			if err := coord.Wait(drainCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown gracefully", goerr.T(types.ErrTagRuntime))
			}

			if err := coord.Err(); err != nil {
				return goerr.Wrap(err, "relwatch stopped by error", goerr.T(types.ErrTagRuntime))
			}

			logger.Info("Shutdown complete")
			return nil
		},
	}
}
