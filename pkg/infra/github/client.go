package github

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
)

type config struct {
	token      string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
}

// Option is a functional option for Client configuration
type Option func(*config)

// WithToken sets the bearer token sent in the Authorization header
func WithToken(token string) Option {
	return func(c *config) {
		c.token = token
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *config) {
		c.userAgent = ua
	}
}

// WithTimeout sets the timeout of one fetch
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. WithTimeout is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// Client fetches latest-release metadata. The repository URL is requested
// as is, so any endpoint that returns a GitHub release object works.
type Client struct {
	githubClient *github.Client
	validate     *validator.Validate
}

// NewClient creates a new release fetcher
func NewClient(opts ...Option) *Client {
	cfg := &config{
		userAgent: types.ServiceName + "/" + types.Version,
		timeout:   types.FetchTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	githubClient := github.NewClient(hc)
	if cfg.token != "" {
		githubClient = githubClient.WithAuthToken(cfg.token)
	}
	githubClient.UserAgent = cfg.userAgent

	return &Client{
		githubClient: githubClient,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

// FetchLatest issues one GET against repo.URL and decodes the body
func (c *Client) FetchLatest(ctx context.Context, repo model.Repo) (*model.ReleaseDetail, error) {
	req, err := c.githubClient.NewRequest(http.MethodGet, repo.URL, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build release request",
			goerr.V("repo", repo.Name),
			goerr.V("url", repo.URL))
	}

	var detail model.ReleaseDetail
	resp, err := c.githubClient.Do(ctx, req, &detail)
	if err != nil {
		opts := []goerr.Option{goerr.V("repo", repo.Name), goerr.V("url", repo.URL)}
		if resp != nil {
			opts = append(opts, goerr.V("status", resp.StatusCode))
		}
		return nil, goerr.Wrap(err, "failed to fetch latest release", opts...)
	}

	if err := c.validate.Struct(&detail); err != nil {
		return nil, goerr.Wrap(err, "unexpected release schema",
			goerr.V("repo", repo.Name),
			goerr.V("url", repo.URL))
	}

	return &detail, nil
}
