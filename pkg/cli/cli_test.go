package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/relwatch/pkg/cli"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	gt.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestExitCode(t *testing.T) {
	gt.Value(t, cli.ExitCode(nil)).Equal(cli.ExitOK)
	gt.Value(t, cli.ExitCode(errors.New("bad flag"))).Equal(cli.ExitStartup)
	gt.Value(t, cli.ExitCode(goerr.New("no config", goerr.T(types.ErrTagStartup)))).Equal(cli.ExitStartup)
	gt.Value(t, cli.ExitCode(goerr.New("server failed", goerr.T(types.ErrTagRuntime)))).Equal(cli.ExitRuntime)

	wrapped := goerr.Wrap(goerr.New("server failed", goerr.T(types.ErrTagRuntime)), "stopped")
	gt.Value(t, cli.ExitCode(wrapped)).Equal(cli.ExitRuntime)
}

func TestRun_InvalidLogLevel(t *testing.T) {
	err := cli.Run(context.Background(), []string{"relwatch", "--log-level", "verbose", "serve", "--config", "x.json"})
	gt.Error(t, err)
	gt.Value(t, cli.ExitCode(err)).Equal(cli.ExitStartup)
}

func TestServe_StartupErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "missing config file",
			args: []string{"--config", filepath.Join(t.TempDir(), "missing.json")},
		},
		{
			name: "unsupported alert client",
			args: []string{"--config", writeConfig(t, `{"alert": [{"client": "email", "webhook-url": "https://example.com"}]}`)},
		},
		{
			name: "unsupported store backend",
			args: []string{"--config", writeConfig(t, `{}`), "--store-backend", "redis"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"relwatch", "--log-level", "error", "serve", "--addr", ""}, tt.args...)
			err := cli.Run(context.Background(), args)
			gt.Error(t, err)
			gt.Value(t, cli.ExitCode(err)).Equal(cli.ExitStartup)
		})
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	path := writeConfig(t, `{"period": 3600}`)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- cli.Run(ctx, []string{
			"relwatch", "--log-level", "error",
			"serve", "--config", path, "--store-backend", "memory", "--addr", "",
		})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		gt.NoError(t, err)
		gt.Value(t, cli.ExitCode(err)).Equal(cli.ExitOK)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServe_StatusServerFailure(t *testing.T) {
	path := writeConfig(t, `{"period": 3600}`)

	done := make(chan error, 1)
	go func() {
		done <- cli.Run(context.Background(), []string{
			"relwatch", "--log-level", "error",
			"serve", "--config", path, "--store-backend", "memory", "--addr", "localhost:invalid",
		})
	}()

	select {
	case err := <-done:
		gt.Error(t, err)
		gt.Value(t, cli.ExitCode(err)).Equal(cli.ExitRuntime)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestPrintReleases(t *testing.T) {
	releases := []*model.Release{
		{
			Name: "bar",
			URL:  "https://api.github.com/repos/o/bar/releases/latest",
			Detail: model.ReleaseDetail{
				ReleaseName: "Beta",
				TagName:     "v2.0.0-rc1",
				Prerelease:  true,
				PublishedAt: "2024-02-01T00:00:00Z",
				HTMLURL:     "https://github.com/o/bar/releases/tag/v2.0.0-rc1",
			},
		},
		{
			Name: "foo",
			URL:  "https://api.github.com/repos/o/foo/releases/latest",
			Detail: model.ReleaseDetail{
				ReleaseName: "First",
				TagName:     "v1.0.0",
				PublishedAt: "2024-01-01T00:00:00Z",
				HTMLURL:     "https://github.com/o/foo/releases/tag/v1.0.0",
			},
		},
	}

	var buf bytes.Buffer
	gt.NoError(t, cli.PrintReleases(&buf, releases))

	out := buf.String()
	gt.String(t, out).Contains("bar")
	gt.String(t, out).Contains("v2.0.0-rc1 (prerelease)")
	gt.String(t, out).Contains("https://github.com/o/bar/releases/tag/v2.0.0-rc1")
	gt.String(t, out).Contains("foo")
	gt.String(t, out).Contains("release_name: First")
	gt.String(t, out).NotContains("v1.0.0 (prerelease)")
}

func TestPrintReleases_Empty(t *testing.T) {
	var buf bytes.Buffer
	gt.NoError(t, cli.PrintReleases(&buf, nil))
	gt.String(t, buf.String()).Contains("No release recorded yet")
}
