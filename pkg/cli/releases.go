package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/cli/config"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

func cmdReleases() *cli.Command {
	var (
		watchCfg config.Watch
		storeCfg config.Store
	)

	return &cli.Command{
		Name:    "releases",
		Aliases: []string{"ls"},
		Usage:   "Show the last seen release of each repository",
		Flags:   append(watchCfg.Flags(), storeCfg.Flags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := watchCfg.Load()
			if err != nil {
				return goerr.Wrap(err, "failed to load watch config", goerr.T(types.ErrTagStartup))
			}

			db, err := storeCfg.New(ctx, cfg.DBPath)
			if err != nil {
				return goerr.Wrap(err, "failed to open release store", goerr.T(types.ErrTagStartup))
			}
			defer db.Close()

			releases, err := db.List(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list releases", goerr.T(types.ErrTagRuntime))
			}

			return printReleases(c.Root().Writer, releases)
		},
	}
}

var (
	repoColor       = color.New(color.FgCyan, color.Bold)
	tagColor        = color.New(color.FgGreen)
	prereleaseColor = color.New(color.FgYellow)
	faintColor      = color.New(color.Faint)
)

func printReleases(w io.Writer, releases []*model.Release) error {
	if len(releases) == 0 {
		_, err := faintColor.Fprintln(w, "No release recorded yet")
		return err
	}

	for _, r := range releases {
		tag := tagColor
		label := ""
		if r.Detail.Prerelease {
			tag = prereleaseColor
			label = " (prerelease)"
		}

		if _, err := repoColor.Fprint(w, r.Name); err != nil {
			return goerr.Wrap(err, "failed to write release")
		}
		if _, err := fmt.Fprint(w, "  "); err != nil {
			return goerr.Wrap(err, "failed to write release")
		}
		if _, err := tag.Fprintf(w, "%s%s\n", r.Detail.TagName, label); err != nil {
			return goerr.Wrap(err, "failed to write release")
		}
		if _, err := fmt.Fprintf(w, "  release_name: %s\n  publish_at:   %s\n  url:          %s\n",
			r.Detail.ReleaseName, r.Detail.PublishedAt, r.Detail.HTMLURL); err != nil {
			return goerr.Wrap(err, "failed to write release")
		}
	}
	return nil
}
