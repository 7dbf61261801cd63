// Package metrics mirrors answering activity into Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entrhq/autoanswer/pkg/types"
)

// Metrics holds the collectors. It implements types.Observer so it can be
// attached to the cache, extractor and orchestrator.
type Metrics struct {
	registry *prometheus.Registry

	// Counter: questions finished, by strategy and outcome.
	QuestionsTotal *prometheus.CounterVec

	// Counter: cache lookups by result (hit, fuzzy_hit, miss).
	CacheLookupsTotal *prometheus.CounterVec

	// Counter: extraction attempts started and answers extracted.
	ExtractionAttemptsTotal prometheus.Counter
	AnswersExtractedTotal   prometheus.Counter

	// Counter: verification results by correctness.
	VerificationsTotal *prometheus.CounterVec

	// Counter: persistent backend failures.
	StorageWarningsTotal prometheus.Counter

	// Histogram: status server latency in seconds.
	StatusLatencySeconds *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		QuestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoanswer_questions_total",
				Help: "Questions processed, by final strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoanswer_cache_lookups_total",
				Help: "Answer cache lookups by result.",
			},
			[]string{"result"},
		),
		ExtractionAttemptsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "autoanswer_extraction_attempts_total",
				Help: "Trial-answer extraction attempts started.",
			},
		),
		AnswersExtractedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "autoanswer_answers_extracted_total",
				Help: "Answers discovered by extraction.",
			},
		),
		VerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoanswer_verifications_total",
				Help: "Cached answers checked against page feedback.",
			},
			[]string{"correct"},
		),
		StorageWarningsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "autoanswer_storage_warnings_total",
				Help: "Cache writes that only reached memory.",
			},
		),
		StatusLatencySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autoanswer_status_latency_seconds",
				Help:    "HTTP request latency for the status server in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"path", "method", "status_code"},
		),
	}

	m.registry.MustRegister(
		m.QuestionsTotal,
		m.CacheLookupsTotal,
		m.ExtractionAttemptsTotal,
		m.AnswersExtractedTotal,
		m.VerificationsTotal,
		m.StorageWarningsTotal,
		m.StatusLatencySeconds,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// OnEvent implements types.Observer.
func (m *Metrics) OnEvent(e types.Event) {
	switch e.Type {
	case types.EventTypeCacheHit:
		m.CacheLookupsTotal.WithLabelValues("hit").Inc()
	case types.EventTypeCacheFuzzyHit:
		m.CacheLookupsTotal.WithLabelValues("fuzzy_hit").Inc()
	case types.EventTypeCacheMiss:
		m.CacheLookupsTotal.WithLabelValues("miss").Inc()
	case types.EventTypeAttemptStart:
		m.ExtractionAttemptsTotal.Inc()
	case types.EventTypeAnswerExtracted:
		m.AnswersExtractedTotal.Inc()
	case types.EventTypeVerificationResult:
		m.VerificationsTotal.WithLabelValues(strconv.FormatBool(e.Correct)).Inc()
	case types.EventTypeStorageWarning:
		m.StorageWarningsTotal.Inc()
	case types.EventTypeStrategyEnd:
		outcome := "answered"
		if e.Error != nil {
			outcome = "failed"
		}
		m.QuestionsTotal.WithLabelValues(e.Strategy, outcome).Inc()
	}
}

// Handler exposes the registry for Prometheus to scrape.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware measures latency for each HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// capture status code
		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		m.StatusLatencySeconds.
			WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

var _ types.Observer = (*Metrics)(nil)
