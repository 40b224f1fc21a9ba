package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/relwatch/pkg/cli/config"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadWatch_JSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"dbPath": "/var/lib/relwatch/db",
		"period": 60,
		"retryInterval": 5,
		"alert": [
			{"client": "slack", "webhook-url": "https://hooks.slack.com/services/T/B/X"},
			{"client": "wechat", "webhook-url": ""}
		],
		"repoList": [
			{"name": "foo", "url": "https://api.github.com/repos/o/foo/releases/latest"},
			{"name": "bar", "url": "https://api.github.com/repos/o/bar/releases/latest"}
		]
	}`)

	cfg, err := config.LoadWatch(path)
	gt.NoError(t, err)
	gt.Value(t, cfg.DBPath).Equal("/var/lib/relwatch/db")
	gt.Value(t, cfg.Period).Equal(60 * time.Second)
	gt.Value(t, cfg.RetryInterval).Equal(5 * time.Second)
	gt.A(t, cfg.Alert).Length(2)
	gt.Value(t, cfg.Alert[0].Client).Equal(types.ProviderSlack)
	gt.Value(t, cfg.Alert[1].WebhookURL).Equal("")
	gt.A(t, cfg.RepoList).Length(2)
	gt.Value(t, cfg.RepoList[1].Name).Equal(types.RepoName("bar"))
}

func TestLoadWatch_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
period = 30
token = "ghp_abc"
userAgent = "my-watcher"

[[alert]]
client = "wechat"
webhook-url = "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=k"

[[repoList]]
name = "foo"
url = "https://api.github.com/repos/o/foo/releases/latest"
`)

	cfg, err := config.LoadWatch(path)
	gt.NoError(t, err)
	gt.Value(t, cfg.Period).Equal(30 * time.Second)
	gt.Value(t, cfg.RetryInterval).Equal(types.DefaultRetryInterval)
	gt.Value(t, cfg.Token).Equal("ghp_abc")
	gt.Value(t, cfg.UserAgent).Equal("my-watcher")
	gt.A(t, cfg.Alert).Length(1)
	gt.Value(t, cfg.Alert[0].Client).Equal(types.ProviderWeChat)
	gt.A(t, cfg.RepoList).Length(1)
}

func TestLoadWatch_Defaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{}`)

	cfg, err := config.LoadWatch(path)
	gt.NoError(t, err)
	gt.Value(t, cfg.DBPath).Equal(config.DefaultDBPath)
	gt.Value(t, cfg.Period).Equal(types.DefaultPeriod)
	gt.Value(t, cfg.RetryInterval).Equal(types.DefaultRetryInterval)
	gt.A(t, cfg.RepoList).Length(0)
}

func TestLoadWatch_ZeroRetryInterval(t *testing.T) {
	path := writeConfig(t, "config.json", `{"retryInterval": 0}`)

	cfg, err := config.LoadWatch(path)
	gt.NoError(t, err)
	gt.Value(t, cfg.RetryInterval).Equal(time.Duration(0))
}

func TestLoadWatch_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "unsupported alert client",
			file: "config.json",
			body: `{"alert": [{"client": "email", "webhook-url": "https://example.com"}]}`,
		},
		{
			name: "zero period",
			file: "config.json",
			body: `{"period": 0}`,
		},
		{
			name: "negative period",
			file: "config.json",
			body: `{"period": -10}`,
		},
		{
			name: "negative retry interval",
			file: "config.json",
			body: `{"retryInterval": -1}`,
		},
		{
			name: "duplicated repo name",
			file: "config.json",
			body: `{"repoList": [
				{"name": "foo", "url": "https://example.com/a"},
				{"name": "foo", "url": "https://example.com/b"}
			]}`,
		},
		{
			name: "empty repo name",
			file: "config.json",
			body: `{"repoList": [{"name": "", "url": "https://example.com/a"}]}`,
		},
		{
			name: "relative repo url",
			file: "config.json",
			body: `{"repoList": [{"name": "foo", "url": "/repos/o/foo/releases/latest"}]}`,
		},
		{
			name: "invalid webhook url",
			file: "config.json",
			body: `{"alert": [{"client": "slack", "webhook-url": "not a url"}]}`,
		},
		{
			name: "token with whitespace",
			file: "config.json",
			body: `{"token": "ghp abc"}`,
		},
		{
			name: "malformed json",
			file: "config.json",
			body: `{"period": `,
		},
		{
			name: "malformed toml",
			file: "config.toml",
			body: `period = = 1`,
		},
		{
			name: "wrong value type",
			file: "config.json",
			body: `{"period": "2h"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadWatch(writeConfig(t, tt.file, tt.body))
			gt.Error(t, err)
		})
	}
}

func TestLoadWatch_NotRegularFile(t *testing.T) {
	_, err := config.LoadWatch(t.TempDir())
	gt.Error(t, err)
}

func TestLoadWatch_Missing(t *testing.T) {
	_, err := config.LoadWatch(filepath.Join(t.TempDir(), "missing.json"))
	gt.Error(t, err)
}
