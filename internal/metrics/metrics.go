// Package metrics records reasoning-capability calls, retries and stage
// fallbacks in a private Prometheus registry. A run can export the registry
// as a node_exporter textfile when it finishes.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeTransient = "transient"
	OutcomeFatal     = "fatal"
)

// Recorder holds the run's collectors. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry  *prometheus.Registry
	calls     *prometheus.CounterVec
	retries   *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	tokens    *prometheus.CounterVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "c4pm",
			Name:      "capability_calls_total",
			Help:      "Reasoning capability calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "c4pm",
			Name:      "capability_retries_total",
			Help:      "Backoff retries after transient capability failures.",
		}, []string{"stage"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "c4pm",
			Name:      "stage_fallbacks_total",
			Help:      "Stage results replaced by the degraded fallback.",
		}, []string{"stage"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "c4pm",
			Name:      "capability_call_seconds",
			Help:      "Latency of single capability calls.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "c4pm",
			Name:      "capability_tokens_total",
			Help:      "Tokens consumed by direction.",
		}, []string{"stage", "direction"}),
	}
	r.registry.MustRegister(r.calls, r.retries, r.fallbacks, r.latency, r.tokens)
	return r
}

// Call records one capability call.
func (r *Recorder) Call(stage, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.calls.WithLabelValues(stage, outcome).Inc()
	r.latency.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// Retry records one backoff retry.
func (r *Recorder) Retry(stage string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(stage).Inc()
}

// Fallback records a degraded stage result.
func (r *Recorder) Fallback(stage string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(stage).Inc()
}

// Tokens records token usage for a call.
func (r *Recorder) Tokens(stage string, input, output int64) {
	if r == nil {
		return
	}
	r.tokens.WithLabelValues(stage, "input").Add(float64(input))
	r.tokens.WithLabelValues(stage, "output").Add(float64(output))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile writes the registry in the text exposition format to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
