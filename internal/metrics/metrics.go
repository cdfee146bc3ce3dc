// Package metrics counts what happens during a run and writes the counts
// in Prometheus text format when the run ends.
//
// Each run owns its registry; nothing is registered globally. A nil
// *Collector is valid and records nothing.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/reachbench/internal/score"
)

// Collector holds the metrics of one run.
type Collector struct {
	registry *prometheus.Registry

	submissions *prometheus.CounterVec
	rateLimited prometheus.Counter
	dropped     prometheus.Counter
	answers     *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	latency     prometheus.Histogram
}

// New creates a collector with a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reachbench_submissions_total",
			Help: "Prompts submitted to the model by outcome",
		}, []string{"outcome"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "reachbench_rate_limited_total",
			Help: "Submissions refused with a rate limit signal",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "reachbench_dropped_attempts_total",
			Help: "Attempts dropped after a transport failure",
		}),
		answers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reachbench_answers_total",
			Help: "Scored answers by mode, interpreted answer and correctness",
		}, []string{"mode", "answer", "correct"}),
		tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reachbench_tokens_total",
			Help: "Tokens reported by the model by direction",
		}, []string{"direction"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reachbench_submit_duration_seconds",
			Help:    "Model round trip duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~200s
		}),
	}
}

// Submitted records one model round trip.
func (c *Collector) Submitted(d time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.submissions.WithLabelValues(outcome).Inc()
	c.latency.Observe(d.Seconds())
}

// RateLimited records one rate limit signal.
func (c *Collector) RateLimited() {
	if c == nil {
		return
	}
	c.rateLimited.Inc()
}

// Dropped records one attempt given up on.
func (c *Collector) Dropped() {
	if c == nil {
		return
	}
	c.dropped.Inc()
}

// Scored records a result row produced in mode ("live" or "batch").
func (c *Collector) Scored(mode string, r score.Result) {
	if c == nil {
		return
	}
	c.answers.WithLabelValues(mode, r.Answer, strconv.FormatBool(r.Correct)).Inc()
	c.tokens.WithLabelValues("input").Add(float64(r.InputTokens))
	c.tokens.WithLabelValues("output").Add(float64(r.OutputTokens))
}

// WriteTextfile writes every metric to path in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
