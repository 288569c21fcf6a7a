package events

import (
	"context"
	"time"

	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/metrics"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultStoreTimeout bounds every call into the event store
const DefaultStoreTimeout = 5 * time.Second

// Reader is the query layer over the event log. It validates filters
// before touching the store and bounds every store call with a timeout.
type Reader struct {
	store   Store
	timeout time.Duration
}

// NewReader creates a reader over store. A non-positive timeout falls back
// to DefaultStoreTimeout.
func NewReader(store Store, timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Reader{store: store, timeout: timeout}
}

// GetEvents returns events matching q, newest first by default
func (r *Reader) GetEvents(ctx context.Context, q Query) ([]models.Event, error) {
	if err := q.Filter.Validate(); err != nil {
		return nil, err
	}

	var out []models.Event
	err := r.call(ctx, "find", func(ctx context.Context) error {
		var err error
		out, err = r.store.Find(ctx, q)
		return err
	})
	return out, err
}

// CountEvents returns the number of events matching f
func (r *Reader) CountEvents(ctx context.Context, f Filter) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}

	var n int64
	err := r.call(ctx, "count", func(ctx context.Context) error {
		var err error
		n, err = r.store.Count(ctx, f)
		return err
	})
	return n, err
}

// AggregateEvents counts events matching f grouped by groupBy. An
// unrecognized groupBy is a configuration error.
func (r *Reader) AggregateEvents(ctx context.Context, groupBy string, f Filter) ([]GroupCount, error) {
	field, err := ParseField(groupBy)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var out []GroupCount
	err = r.call(ctx, "group_count", func(ctx context.Context) error {
		var err error
		out, err = r.store.GroupCount(ctx, field, f)
		return err
	})
	return out, err
}

func (r *Reader) call(ctx context.Context, op string, fn func(ctx context.Context) error) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "events."+op, attribute.String("store.operation", op))
	defer func() { telemetry.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err = fn(ctx)
	m := metrics.Get()
	m.StoreQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		err = apperrors.FromStore(op, err)
		m.StoreErrorsTotal.WithLabelValues(op, string(apperrors.CodeOf(err))).Inc()
		logger.Log.Warn("Event store call failed",
			zap.String("operation", op),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
	}
	return err
}
