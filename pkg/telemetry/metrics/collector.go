// Package metrics owns the Prometheus instrumentation for the engine:
// request outcomes, gate verdicts, analyzer runs, and upstream generation
// calls. A Collector holds its own registry so tests never collide.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config controls collector construction.
type Config struct {
	// Enabled disables all recording when false; the collector methods
	// become no-ops but stay safe to call.
	Enabled bool `yaml:"enabled"`

	// Namespace and Subsystem prefix every metric name.
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// Collector registers and records all engine metrics.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	gateEvaluations *prometheus.CounterVec
	gateViolations  *prometheus.CounterVec

	analyzerRuns     *prometheus.CounterVec
	analyzerDuration *prometheus.HistogramVec

	generationCalls    *prometheus.CounterVec
	generationDuration prometheus.Histogram
	generationTokens   *prometheus.CounterVec

	conversationsActive prometheus.Gauge
}

// NewCollector builds a collector on the given registry, or a private
// registry when nil.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "kyosan"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "engine"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "requests_total",
			Help:      "Processed requests by terminal status.",
		}, []string{"status", "level"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "request_duration_seconds",
			Help:      "End-to-end pipeline duration.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"status"}),

		gateEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "gate_evaluations_total",
			Help:      "Gate evaluations by source and overall outcome.",
		}, []string{"source", "outcome"}),

		gateViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "gate_violations_total",
			Help:      "Gate violations by blocking layer and action.",
		}, []string{"layer", "action", "source"}),

		analyzerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "analyzer_runs_total",
			Help:      "Analyzer invocations by id and outcome.",
		}, []string{"analyzer", "outcome"}),

		analyzerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "analyzer_duration_seconds",
			Help:      "Duration of one full analysis pass.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"level"}),

		generationCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "generation_calls_total",
			Help:      "Upstream generation calls by provider and outcome.",
		}, []string{"provider", "outcome"}),

		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "generation_duration_seconds",
			Help:      "Upstream generation call duration.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		generationTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "generation_tokens_total",
			Help:      "Tokens consumed upstream, by kind.",
		}, []string{"provider", "kind"}),

		conversationsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "conversations_active",
			Help:      "Conversations currently retained in the store.",
		}),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.gateEvaluations,
		c.gateViolations,
		c.analyzerRuns,
		c.analyzerDuration,
		c.generationCalls,
		c.generationDuration,
		c.generationTokens,
		c.conversationsActive,
	)

	return c
}

// RecordRequest records one completed pipeline request.
func (c *Collector) RecordRequest(status, level string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestsTotal.WithLabelValues(status, level).Inc()
	c.requestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordGateEvaluation records one gate pass.
func (c *Collector) RecordGateEvaluation(source string, compliant bool) {
	if !c.config.Enabled {
		return
	}
	outcome := "compliant"
	if !compliant {
		outcome = "violation"
	}
	c.gateEvaluations.WithLabelValues(source, outcome).Inc()
}

// RecordGateViolation records the blocking layer of a failed gate pass.
func (c *Collector) RecordGateViolation(layer, action, source string) {
	if !c.config.Enabled {
		return
	}
	c.gateViolations.WithLabelValues(layer, action, source).Inc()
}

// RecordAnalyzerRun records one analyzer invocation.
func (c *Collector) RecordAnalyzerRun(analyzer string, ok bool) {
	if !c.config.Enabled {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	c.analyzerRuns.WithLabelValues(analyzer, outcome).Inc()
}

// RecordAnalysisPass records the duration of a full orchestrator run.
func (c *Collector) RecordAnalysisPass(level string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.analyzerDuration.WithLabelValues(level).Observe(duration.Seconds())
}

// RecordGeneration records one upstream completion call.
func (c *Collector) RecordGeneration(provider string, err error, duration time.Duration, promptTokens, completionTokens int) {
	if !c.config.Enabled {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.generationCalls.WithLabelValues(provider, outcome).Inc()
	c.generationDuration.Observe(duration.Seconds())
	if promptTokens > 0 {
		c.generationTokens.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		c.generationTokens.WithLabelValues(provider, "completion").Add(float64(completionTokens))
	}
}

// SetActiveConversations updates the retained-conversation gauge.
func (c *Collector) SetActiveConversations(n int) {
	if !c.config.Enabled {
		return
	}
	c.conversationsActive.Set(float64(n))
}

// Registry returns the underlying Prometheus registry for the /metrics
// endpoint.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
