package engagement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/events"
	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/metrics"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/telemetry"
	"github.com/qaforum/engagement/internal/workerpool"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultDecayHours is the half-life used by AggregateScores when a query
// does not set one
const DefaultDecayHours = 72.0

// Aggregator computes engagement metrics and decayed scores from the
// event log read through an events.Reader.
type Aggregator struct {
	reader     *events.Reader
	weights    Weights
	decayHours float64
	workers    int
	now        func() time.Time
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithWeights replaces the default score weights
func WithWeights(w Weights) Option {
	return func(a *Aggregator) { a.weights = w }
}

// WithDecayHours sets the default half-life for AggregateScores
func WithDecayHours(h float64) Option {
	return func(a *Aggregator) {
		if h > 0 {
			a.decayHours = h
		}
	}
}

// WithWorkers bounds concurrent per-target work in batch operations
func WithWorkers(n int) Option {
	return func(a *Aggregator) { a.workers = n }
}

// WithClock injects the time source used to age events
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator creates an aggregator over reader
func NewAggregator(reader *events.Reader, opts ...Option) *Aggregator {
	a := &Aggregator{
		reader:     reader,
		weights:    DefaultScoreWeights(),
		decayHours: DefaultDecayHours,
		workers:    workerpool.DefaultLimit,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Weights returns the aggregator's default score weights
func (a *Aggregator) Weights() Weights { return a.weights }

// DecayHours returns the aggregator's default half-life
func (a *Aggregator) DecayHours() float64 { return a.decayHours }

// Now returns the aggregator's current time
func (a *Aggregator) Now() time.Time { return a.now() }

// MetricsOptions narrows and weights an engagement metrics computation
type MetricsOptions struct {
	StartDate *time.Time
	EndDate   *time.Time
	// WeightDecay enables SmoothDecay weighting when non-nil
	WeightDecay *float64
}

// EngagementMetrics summarizes every event of one target
func (a *Aggregator) EngagementMetrics(ctx context.Context, targetType models.TargetType, targetID int64, opts MetricsOptions) (m Metrics, err error) {
	ctx, span := telemetry.StartSpan(ctx, "engagement.metrics",
		attribute.String("target_type", string(targetType)),
		attribute.Int64("target_id", targetID),
	)
	defer func() { telemetry.EndSpan(span, err) }()
	defer observe("metrics", time.Now())

	id := targetID
	evs, err := a.reader.GetEvents(ctx, events.Query{Filter: events.Filter{
		TargetType: targetType,
		TargetID:   &id,
		StartDate:  opts.StartDate,
		EndDate:    opts.EndDate,
	}})
	if err != nil {
		return Metrics{}, err
	}
	return ComputeMetrics(evs, a.now(), opts.WeightDecay), nil
}

// MetricsLastDays is EngagementMetrics over the trailing days
func (a *Aggregator) MetricsLastDays(ctx context.Context, targetType models.TargetType, targetID int64, days int, weightDecay *float64) (Metrics, error) {
	if days < 0 {
		return Metrics{}, apperrors.Validation("days", "must not be negative")
	}
	start := a.now().AddDate(0, 0, -days)
	return a.EngagementMetrics(ctx, targetType, targetID, MetricsOptions{StartDate: &start, WeightDecay: weightDecay})
}

// TargetError reports a failed computation for one target
type TargetError struct {
	Target models.TargetKey
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s: %v", e.Target, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// BatchResult holds per-target metrics alongside per-target failures
type BatchResult struct {
	Results  map[int64]Metrics `json:"results"`
	Failures map[int64]error   `json:"-"`
}

// Err joins every failure into one error, or nil when all succeeded
func (b *BatchResult) Err() error {
	if len(b.Failures) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(b.Failures))
	for id := range b.Failures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, b.Failures[id])
	}
	return errors.Join(errs...)
}

// BatchMetrics computes metrics for each id independently. A failing
// target is reported in Failures and never aborts the others. Duplicate
// ids are computed once.
func (a *Aggregator) BatchMetrics(ctx context.Context, targetType models.TargetType, ids []int64, opts MetricsOptions) *BatchResult {
	ctx, span := telemetry.StartSpan(ctx, "engagement.batch_metrics",
		attribute.String("target_type", string(targetType)),
		attribute.Int("targets", len(ids)),
	)
	defer span.End()
	defer observe("batch_metrics", time.Now())

	unique := dedupe(ids)
	results, errs := workerpool.Map(ctx, a.workers, unique, func(ctx context.Context, id int64) (Metrics, error) {
		return a.EngagementMetrics(ctx, targetType, id, opts)
	})

	out := &BatchResult{
		Results:  make(map[int64]Metrics, len(unique)),
		Failures: make(map[int64]error),
	}
	for i, id := range unique {
		if errs[i] != nil {
			key := models.TargetKey{Type: targetType, ID: id}
			out.Failures[id] = &TargetError{Target: key, Err: errs[i]}
			metrics.Get().TargetFailuresTotal.WithLabelValues("batch_metrics").Inc()
			logger.Log.Warn("Engagement metrics failed for target",
				logger.WithTarget(key),
				zap.Error(errs[i]),
			)
			continue
		}
		out.Results[id] = results[i]
	}
	span.SetAttributes(attribute.Int("failures", len(out.Failures)))
	return out
}

// ScoreQuery selects the events folded into decayed scores
type ScoreQuery struct {
	TargetType models.TargetType
	// TargetIDs filters scored targets. Nil scores every target, an empty
	// non-nil slice scores none.
	TargetIDs []int64
	ActorID   *int64
	FeedID    string
	SessionID string
	StartDate *time.Time
	EndDate   *time.Time
	// Weights overrides the aggregator's table wholesale when set
	Weights *Weights
	// DecayHours <= 0 uses the aggregator default
	DecayHours float64
}

// AggregateScores computes a time-decayed score per target
func (a *Aggregator) AggregateScores(ctx context.Context, q ScoreQuery) (scores *Scores, err error) {
	ctx, span := telemetry.StartSpan(ctx, "engagement.aggregate_scores",
		attribute.String("target_type", string(q.TargetType)),
	)
	defer func() { telemetry.EndSpan(span, err) }()
	defer observe("aggregate_scores", time.Now())

	if q.TargetIDs != nil && len(q.TargetIDs) == 0 {
		return newScores(), nil
	}

	weights := a.weights
	if q.Weights != nil {
		weights = *q.Weights
	}
	decay := q.DecayHours
	if decay <= 0 {
		decay = a.decayHours
	}

	evs, err := a.reader.GetEvents(ctx, events.Query{Filter: events.Filter{
		TargetType: q.TargetType,
		ActorID:    q.ActorID,
		FeedID:     q.FeedID,
		SessionID:  q.SessionID,
		StartDate:  q.StartDate,
		EndDate:    q.EndDate,
	}})
	if err != nil {
		return nil, err
	}

	scores = ComputeScores(evs, weights, decay, a.now(), q.TargetIDs)
	span.SetAttributes(attribute.Int("events", len(evs)), attribute.Int("targets", scores.Len()))
	return scores, nil
}

// TopN returns at most n targets by descending decayed score. Equal scores
// keep the order in which targets were first seen.
func (a *Aggregator) TopN(ctx context.Context, n int, q ScoreQuery) ([]ScoredTarget, error) {
	if n <= 0 {
		return []ScoredTarget{}, nil
	}
	scores, err := a.AggregateScores(ctx, q)
	if err != nil {
		return nil, err
	}
	return scores.Top(n), nil
}

// AggregateByEventType counts events of targetType grouped by groupBy,
// which defaults to event_type
func (a *Aggregator) AggregateByEventType(ctx context.Context, targetType models.TargetType, start, end *time.Time, groupBy string) ([]events.GroupCount, error) {
	if groupBy == "" {
		groupBy = string(events.FieldEventType)
	}
	return a.reader.AggregateEvents(ctx, groupBy, events.Filter{
		TargetType: targetType,
		StartDate:  start,
		EndDate:    end,
	})
}

func observe(op string, start time.Time) {
	metrics.Get().AggregationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
