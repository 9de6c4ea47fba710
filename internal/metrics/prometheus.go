package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "journey_api"

// Prometheus exposes generation and HTTP metrics for scraping
type Prometheus struct {
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	tokensTotal        *prometheus.CounterVec
	httpRequestsTotal  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewPrometheus registers the collectors on reg. Passing nil uses the default registry.
func NewPrometheus(reg *prometheus.Registry) *Prometheus {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer = reg
		gatherer = reg
	}
	factory := promauto.With(registerer)

	return &Prometheus{
		generationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: promNamespace,
				Name:      "generation_requests_total",
				Help:      "Generation calls by task and outcome kind",
			},
			[]string{"task", "kind"},
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: promNamespace,
				Name:      "generation_duration_seconds",
				Help:      "Generation latency in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
			},
			[]string{"task"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: promNamespace,
				Name:      "generation_tokens_total",
				Help:      "Tokens consumed by generation calls",
			},
			[]string{"task", "direction"}, // direction: input, output
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: promNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"endpoint", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: promNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		gatherer: gatherer,
	}
}

// RecordGeneration counts the outcome and observes latency and tokens
func (p *Prometheus) RecordGeneration(_ context.Context, outcome Outcome) {
	p.generationsTotal.WithLabelValues(outcome.Task, outcome.Kind).Inc()
	p.generationDuration.WithLabelValues(outcome.Task).Observe(outcome.Duration.Seconds())
	if outcome.InputTokens > 0 {
		p.tokensTotal.WithLabelValues(outcome.Task, "input").Add(float64(outcome.InputTokens))
	}
	if outcome.OutputTokens > 0 {
		p.tokensTotal.WithLabelValues(outcome.Task, "output").Add(float64(outcome.OutputTokens))
	}
}

// RecordAPIRequest counts the request and observes its latency
func (p *Prometheus) RecordAPIRequest(_ context.Context, endpoint string, statusCode int, duration time.Duration) {
	p.httpRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	p.httpDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
