package model

import (
	"time"

	"github.com/m-mizutani/relwatch/pkg/domain/types"
)

// AlertConfig is one configured alert destination. An empty WebhookURL
// keeps the provider configured but disabled.
type AlertConfig struct {
	Client     types.ProviderKind `json:"client" toml:"client" validate:"required,provider"`
	WebhookURL string             `json:"webhook-url" toml:"webhook-url" validate:"omitempty,http_url" masq:"secret"`
}

// WatchConfig is loaded once at startup and never mutated afterwards.
type WatchConfig struct {
	DBPath        string
	Period        time.Duration `validate:"gt=0"`
	RetryInterval time.Duration `validate:"gte=0"`
	Token         string        `validate:"omitempty,printascii" masq:"secret"`
	UserAgent     string
	Alert         []AlertConfig `validate:"dive"`
	RepoList      []Repo        `validate:"unique=Name,dive"`
}
