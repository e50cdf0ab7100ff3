// Package analyzer turns a review comment into an opaque Analysis document.
package analyzer

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/storefront-reviews/internal/domain"
	"github.com/utafrali/storefront-reviews/pkg/tracing"
)

// Analyzer derives an assessment from comment text.
type Analyzer interface {
	AnalyzeComment(ctx context.Context, comment string) (domain.Analysis, error)
}

var (
	analyzeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "review_analyzer_duration_seconds",
			Help:    "Duration of comment analysis calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	analyzeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_analyzer_failures_total",
			Help: "Total number of failed comment analysis calls",
		},
		[]string{"provider"},
	)
)

type instrumented struct {
	provider string
	timeout  time.Duration
	next     Analyzer
}

// Instrument bounds each call by timeout and records a span and metrics
// labelled with provider. A zero timeout leaves the caller's deadline alone.
func Instrument(provider string, timeout time.Duration, next Analyzer) Analyzer {
	return &instrumented{provider: provider, timeout: timeout, next: next}
}

func (a *instrumented) AnalyzeComment(ctx context.Context, comment string) (domain.Analysis, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	ctx, span := tracing.StartSpan(ctx, "analyzer", "AnalyzeComment")
	span.SetAttributes(
		attribute.String("analyzer.provider", a.provider),
		attribute.Int("analyzer.comment_length", len(comment)),
	)
	defer span.End()

	start := time.Now()
	analysis, err := a.next.AnalyzeComment(ctx, comment)
	analyzeDuration.WithLabelValues(a.provider).Observe(time.Since(start).Seconds())
	if err != nil {
		analyzeFailures.WithLabelValues(a.provider).Inc()
		tracing.RecordError(span, err)
		return nil, err
	}
	return analysis, nil
}
