package service

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/metrics"
)

// Reporter fans report events out to every sink. Sink errors are logged and
// counted, never returned: reporting must not change trading decisions.
type Reporter struct {
	sinks    []domain.ReportSink
	metrics  *metrics.Metrics
	logger   *slog.Logger
	failures atomic.Int64
}

// NewReporter creates a Reporter over sinks.
func NewReporter(logger *slog.Logger, sinks ...domain.ReportSink) *Reporter {
	return &Reporter{
		sinks:  sinks,
		logger: logger.With(slog.String("component", "reporter")),
	}
}

// WithMetrics attaches the sink error counter.
func (r *Reporter) WithMetrics(m *metrics.Metrics) *Reporter {
	r.metrics = m
	return r
}

// Sinks returns the names of the configured sinks.
func (r *Reporter) Sinks() []string {
	names := make([]string, 0, len(r.sinks))
	for _, s := range r.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Failures returns the number of sink errors seen so far.
func (r *Reporter) Failures() int64 {
	return r.failures.Load()
}

// ScoredCandidates forwards the ranked disclosures of a run.
func (r *Reporter) ScoredCandidates(ctx context.Context, run domain.RunInfo, scored []domain.ScoredTransaction) {
	for _, s := range r.sinks {
		r.check(ctx, s, "scored_candidates", s.ScoredCandidates(ctx, run, scored))
	}
}

// OrderPlaced forwards one order attempt.
func (r *Reporter) OrderPlaced(ctx context.Context, run domain.RunInfo, rep domain.OrderReport) {
	for _, s := range r.sinks {
		r.check(ctx, s, "order_placed", s.OrderPlaced(ctx, run, rep))
	}
}

// RunFinished forwards the run summary.
func (r *Reporter) RunFinished(ctx context.Context, summary domain.RunSummary) {
	for _, s := range r.sinks {
		r.check(ctx, s, "run_finished", s.RunFinished(ctx, summary))
	}
}

func (r *Reporter) check(ctx context.Context, s domain.ReportSink, event string, err error) {
	if err == nil {
		return
	}
	r.failures.Add(1)
	if r.metrics != nil {
		r.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
	}
	r.logger.WarnContext(ctx, "report sink failed",
		slog.String("sink", s.Name()),
		slog.String("event", event),
		slog.String("error", err.Error()),
	)
}
