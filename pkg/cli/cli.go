package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/cli/config"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	var (
		loggerCfg config.Logger
		sentryCfg config.Sentry
		logger    *slog.Logger
	)

	app := &cli.Command{
		Name:    types.ServiceName,
		Usage:   "Watch GitHub repositories and alert on new releases",
		Version: types.Version,
		Flags:   append(loggerCfg.Flags(), sentryCfg.Flags()...),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			logger, err = loggerCfg.Configure()
			if err != nil {
				return nil, goerr.Wrap(err, "failed to configure logger", goerr.T(types.ErrTagStartup))
			}
			if err := sentryCfg.Configure(); err != nil {
				return nil, goerr.Wrap(err, "failed to configure sentry", goerr.T(types.ErrTagStartup))
			}

			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdReleases(),
		},
	}
	defer sentryCfg.Flush()

	if err := app.Run(ctx, args); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("CLI execution failed", slog.Any("error", err))
		if goerr.HasTag(err, types.ErrTagRuntime) {
			sentryCfg.Capture(err)
		}
		return err
	}

	return nil
}

// Exit codes returned by ExitCode
const (
	ExitOK      = 0
	ExitStartup = 1
	ExitRuntime = 2
)

// ExitCode maps an error returned by Run to the process exit code. Errors
// without a runtime tag, including flag parsing errors, are startup errors.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case goerr.HasTag(err, types.ErrTagRuntime):
		return ExitRuntime
	default:
		return ExitStartup
	}
}
