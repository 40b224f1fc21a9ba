package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// DefaultDBPath is used when the watch configuration has no dbPath
const DefaultDBPath = "data/releases.db"

// Watch holds the location of the watch configuration file
type Watch struct {
	Path string
}

// Flags returns CLI flags for watch configuration
func (c *Watch) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Watch configuration file (JSON, or TOML with .toml extension)",
			Required:    true,
			Destination: &c.Path,
			Sources:     cli.EnvVars("RELWATCH_CONFIG"),
		},
	}
}

// Load reads and validates the watch configuration file
func (c *Watch) Load() (*model.WatchConfig, error) {
	return LoadWatch(c.Path)
}

// watchFile is the on-disk form of model.WatchConfig. Durations are seconds.
type watchFile struct {
	DBPath        string              `json:"dbPath" toml:"dbPath"`
	Period        *int64              `json:"period" toml:"period"`
	RetryInterval *int64              `json:"retryInterval" toml:"retryInterval"`
	Token         string              `json:"token" toml:"token"`
	UserAgent     string              `json:"userAgent" toml:"userAgent"`
	Alert         []model.AlertConfig `json:"alert" toml:"alert"`
	RepoList      []model.Repo        `json:"repoList" toml:"repoList"`
}

// LoadWatch reads the watch configuration at path. The file is decoded as
// TOML when its extension is .toml, otherwise as JSON. Missing dbPath, period
// and retryInterval take their defaults.
func LoadWatch(path string) (*model.WatchConfig, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to stat config file", goerr.V("path", path))
	}
	if !stat.Mode().IsRegular() {
		return nil, goerr.New("config file is not a regular file", goerr.V("path", path))
	}

	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var file watchFile
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(raw, &file); err != nil {
			return nil, goerr.Wrap(err, "failed to parse config file (toml)", goerr.V("path", path))
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(&file); err != nil {
			return nil, goerr.Wrap(err, "failed to parse config file (json)", goerr.V("path", path))
		}
	}

	cfg := &model.WatchConfig{
		DBPath:        file.DBPath,
		Period:        types.DefaultPeriod,
		RetryInterval: types.DefaultRetryInterval,
		Token:         file.Token,
		UserAgent:     file.UserAgent,
		Alert:         file.Alert,
		RepoList:      file.RepoList,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if file.Period != nil {
		cfg.Period = time.Duration(*file.Period) * time.Second
	}
	if file.RetryInterval != nil {
		cfg.RetryInterval = time.Duration(*file.RetryInterval) * time.Second
	}

	if err := ValidateWatch(cfg); err != nil {
		return nil, goerr.Wrap(err, "invalid config file", goerr.V("path", path))
	}

	return cfg, nil
}

var watchValidator = newWatchValidator()

func newWatchValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("provider", func(fl validator.FieldLevel) bool {
		return types.ProviderKind(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateWatch checks cfg. Unsupported alert clients are rejected here.
func ValidateWatch(cfg *model.WatchConfig) error {
	for _, a := range cfg.Alert {
		if !a.Client.Valid() {
			return goerr.New("unsupported alert client",
				goerr.V("client", a.Client),
				goerr.V("supported", types.ProviderKinds))
		}
	}

	if strings.ContainsFunc(cfg.Token, unicode.IsSpace) {
		return goerr.New("token must not contain whitespace")
	}

	if err := watchValidator.Struct(cfg); err != nil {
		return goerr.Wrap(err, "validation failed")
	}
	return nil
}
