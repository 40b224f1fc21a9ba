package metrics

import (
	"net/http"

	"github.com/m-mizutani/relwatch/pkg/domain/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PullResult is the outcome of pulling one repository
type PullResult string

const (
	PullUnchanged PullResult = "unchanged"
	PullBaseline  PullResult = "baseline"
	PullChanged   PullResult = "changed"
	PullFailed    PullResult = "failed"
	PullExhausted PullResult = "exhausted"
)

// Recorder counts pipeline events. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry
	pulls    *prometheus.CounterVec
	alerts   *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		pulls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: types.ServiceName,
			Name:      "pull_total",
			Help:      "Number of release pull attempts by result.",
		}, []string{"result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: types.ServiceName,
			Name:      "alert_total",
			Help:      "Number of alert deliveries by provider and result.",
		}, []string{"provider", "result"}),
	}
	r.registry.MustRegister(r.pulls, r.alerts)
	return r
}

func (x *Recorder) Pull(result PullResult) {
	if x == nil {
		return
	}
	x.pulls.WithLabelValues(string(result)).Inc()
}

func (x *Recorder) Alert(provider types.ProviderKind, ok bool) {
	if x == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	x.alerts.WithLabelValues(string(provider), result).Inc()
}

// Handler serves the Prometheus exposition of the recorder
func (x *Recorder) Handler() http.Handler {
	if x == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(x.registry, promhttp.HandlerOpts{})
}
