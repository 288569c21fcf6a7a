package events

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/metrics"
	"github.com/qaforum/engagement/internal/models"
	"go.uber.org/zap"
)

// Listener is notified after an event has been durably appended
type Listener interface {
	Observe(e models.Event)
}

// Recorder is the single insert path content collaborators use when an
// action is accepted. Events are appended whole; there are no partial states.
type Recorder struct {
	store   Store
	now     func() time.Time
	timeout time.Duration

	mu        sync.RWMutex
	listeners []Listener
}

// NewRecorder creates a recorder. now may be nil, in which case wall
// clock time stamps events.
func NewRecorder(store Store, now func() time.Time, timeout time.Duration) *Recorder {
	if now == nil {
		now = time.Now
	}
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Recorder{store: store, now: now, timeout: timeout}
}

// Subscribe registers l for every subsequently recorded event
func (r *Recorder) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Record validates and appends e. Unknown event or target types are kept;
// they simply never weigh anything by default.
func (r *Recorder) Record(ctx context.Context, e *models.Event) (*models.Event, error) {
	if e == nil {
		return nil, apperrors.Validation("event", "event is required")
	}
	if e.EventType == "" {
		return nil, apperrors.Validation("event_type", "event type is required")
	}
	if e.TargetType == "" {
		return nil, apperrors.Validation("target_type", "target type is required")
	}
	if e.TargetID <= 0 {
		return nil, apperrors.Validation("target_id", "target id must be positive")
	}
	if e.OwnerType == "" {
		e.OwnerType = "user"
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.store.Append(ctx, e); err != nil {
		err = apperrors.FromStore("append", err)
		logger.Log.Warn("Failed to record event",
			zap.String("event_type", string(e.EventType)),
			logger.WithTarget(e.Target()),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.Get().EventsRecordedTotal.WithLabelValues(string(e.EventType)).Inc()
	if !e.EventType.Known() {
		logger.Log.Debug("Recorded event outside the taxonomy",
			zap.String("event_type", string(e.EventType)))
	}

	r.mu.RLock()
	listeners := r.listeners
	r.mu.RUnlock()
	for _, l := range listeners {
		l.Observe(*e)
	}

	return e, nil
}
