package translate

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Translation request metrics
	translationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaani_translation_requests_total",
			Help: "Total number of batch translation requests",
		},
		[]string{"engine", "status"},
	)

	translationRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vaani_translation_request_duration_seconds",
			Help:    "Duration of batch translation requests in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"engine", "status"},
	)

	translationBatchSegments = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vaani_translation_batch_segments",
			Help:    "Number of segments per batch translation request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"engine"},
	)

	translationRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vaani_translation_request_size_bytes",
			Help:    "Size of batch translation request text in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"engine"},
	)

	translationResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vaani_translation_response_size_bytes",
			Help:    "Size of batch translation response text in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"engine"},
	)
)

// MetricsCollector records provider call metrics for one engine.
type MetricsCollector struct {
	engine string
}

// NewMetricsCollector creates a new metrics collector for an engine.
func NewMetricsCollector(engine string) *MetricsCollector {
	return &MetricsCollector{
		engine: engine,
	}
}

// RecordTranslationRequest records metrics for a batch translation request.
func (mc *MetricsCollector) RecordTranslationRequest(duration time.Duration, err error, segments, requestSize, responseSize int) {
	status := StatusLabel(err)

	translationRequestsTotal.WithLabelValues(mc.engine, status).Inc()
	translationRequestDuration.WithLabelValues(mc.engine, status).Observe(duration.Seconds())
	translationBatchSegments.WithLabelValues(mc.engine).Observe(float64(segments))
	translationRequestSize.WithLabelValues(mc.engine).Observe(float64(requestSize))
	if err == nil {
		translationResponseSize.WithLabelValues(mc.engine).Observe(float64(responseSize))
	}
}

// StatusLabel names the provider outcome of err for metrics and logs.
func StatusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrProviderTimeout):
		return "timeout"
	case errors.Is(err, ErrProviderUnreachable):
		return "unreachable"
	case errors.Is(err, ErrProviderRejected):
		return "rejected"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}

type instrumentedTranslator struct {
	Translator

	metrics *MetricsCollector
}

// NewInstrumented records every Translate call on the collector.
func NewInstrumented(t Translator, metrics *MetricsCollector) Translator {
	return &instrumentedTranslator{
		Translator: t,
		metrics:    metrics,
	}
}

func (t *instrumentedTranslator) Translate(ctx context.Context, req Request) ([]string, error) {
	startTime := time.Now()
	result, err := t.Translator.Translate(ctx, req)

	t.metrics.RecordTranslationRequest(time.Since(startTime), err, len(req.Data), textSize(req.Data), textSize(result))

	return result, err
}

func textSize(texts []string) int {
	size := 0
	for _, text := range texts {
		size += len(text)
	}
	return size
}
