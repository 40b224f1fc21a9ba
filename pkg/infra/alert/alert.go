// Package alert implements the supported alert providers. Each kind of
// provider posts a provider-specific JSON body to one webhook URL.
package alert

import (
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
)

type config struct {
	timeout    time.Duration
	httpClient *http.Client
}

// Option is a functional option for providers
type Option func(*config)

// WithTimeout sets the timeout of one delivery
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the HTTP client used for delivery
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{timeout: types.DeliveryTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: cfg.timeout}
	}
	return cfg
}

// New creates the provider for kind. An unsupported kind is an error.
func New(kind types.ProviderKind, webhookURL string, opts ...Option) (interfaces.AlertProvider, error) {
	switch kind {
	case types.ProviderSlack:
		return NewSlack(webhookURL, opts...), nil
	case types.ProviderWeChat:
		return NewWeChat(webhookURL, opts...), nil
	default:
		return nil, goerr.New("unsupported alert provider", goerr.V("client", kind))
	}
}

// NewProviders builds one provider per configured alert entry
func NewProviders(alerts []model.AlertConfig, opts ...Option) ([]interfaces.AlertProvider, error) {
	providers := make([]interfaces.AlertProvider, 0, len(alerts))
	for _, a := range alerts {
		p, err := New(a.Client, a.WebhookURL, opts...)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}
