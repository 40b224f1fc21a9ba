package types

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Version is overwritten at build time with -ldflags.
var Version = "dev"

const ServiceName = "relwatch"

// RepoName identifies a watched repository and is the key in the release store.
type RepoName string

func (x RepoName) String() string { return string(x) }

// ProviderKind is the closed set of supported alert destinations.
type ProviderKind string

const (
	ProviderSlack  ProviderKind = "slack"
	ProviderWeChat ProviderKind = "wechat"
)

// ProviderKinds lists every supported ProviderKind.
var ProviderKinds = []ProviderKind{ProviderSlack, ProviderWeChat}

func (x ProviderKind) Valid() bool {
	for _, k := range ProviderKinds {
		if k == x {
			return true
		}
	}
	return false
}

const (
	// RetryLimit is the number of retries after the first failed attempt,
	// so a repository is attempted at most RetryLimit+1 times per cycle.
	RetryLimit = 2

	PullConcurrency  = 8
	AlertConcurrency = 4
	AlertQueueSize   = 32

	FetchTimeout    = 10 * time.Second
	DeliveryTimeout = 5 * time.Second

	DefaultPeriod        = 7200 * time.Second
	DefaultRetryInterval = 600 * time.Second
)

var (
	// ErrTagStartup marks failures before the pipeline starts. Exit code 1.
	ErrTagStartup = goerr.NewTag("startup")
	// ErrTagRuntime marks unrecoverable failures of a running pipeline. Exit code 2.
	ErrTagRuntime = goerr.NewTag("runtime")
)
