package engagement

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/metrics"
	"github.com/qaforum/engagement/internal/models"
	"go.uber.org/zap"
)

// DriftTolerance is the absolute score difference Reconcile ignores
const DriftTolerance = 1e-6

type decayedScore struct {
	value float64
	at    time.Time
}

// Accumulator maintains a decayed score per target incrementally. Each
// observed event folds in as s = s*0.5^((t-t0)/h) + w, so reads cost
// O(1) instead of a pass over the log. Reconcile recomputes from the log.
type Accumulator struct {
	weights    Weights
	decayHours float64
	now        func() time.Time

	mu      sync.RWMutex
	entries map[models.TargetKey]*decayedScore
}

// NewAccumulator creates an empty accumulator. A nil now uses time.Now.
func NewAccumulator(weights Weights, decayHours float64, now func() time.Time) *Accumulator {
	if decayHours <= 0 {
		decayHours = DefaultDecayHours
	}
	if now == nil {
		now = time.Now
	}
	return &Accumulator{
		weights:    weights,
		decayHours: decayHours,
		now:        now,
		entries:    make(map[models.TargetKey]*decayedScore),
	}
}

// Observe folds one event into its target's score. It satisfies
// events.Listener.
func (a *Accumulator) Observe(e models.Event) {
	w := a.weights.Of(e.EventType)
	key := e.Target()

	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.entries[key]
	if !ok {
		if w == 0 {
			return
		}
		a.entries[key] = &decayedScore{value: w, at: e.CreatedAt}
		metrics.Get().AccumulatorTargets.WithLabelValues(string(key.Type)).Inc()
		return
	}

	if e.CreatedAt.After(entry.at) {
		entry.value = a.decay(entry.value, e.CreatedAt.Sub(entry.at)) + w
		entry.at = e.CreatedAt
		return
	}
	// Late arrival: decay the event forward to the entry's reference time.
	entry.value += a.decay(w, entry.at.Sub(e.CreatedAt))
}

// Score returns the decayed score of key as of now
func (a *Accumulator) Score(key models.TargetKey) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, ok := a.entries[key]
	if !ok {
		return 0
	}
	return a.decay(entry.value, a.now().Sub(entry.at))
}

// Top returns at most n targets of targetType by descending score as of
// now, ties broken by ascending id
func (a *Accumulator) Top(targetType models.TargetType, n int) []ScoredTarget {
	if n <= 0 {
		return []ScoredTarget{}
	}
	now := a.now()

	a.mu.RLock()
	out := make([]ScoredTarget, 0, len(a.entries))
	for key, entry := range a.entries {
		if key.Type != targetType {
			continue
		}
		out = append(out, ScoredTarget{TargetID: key.ID, Score: a.decay(entry.value, now.Sub(entry.at))})
	}
	a.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TargetID < out[j].TargetID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Drift is one target whose accumulated score disagreed with the log
type Drift struct {
	Target      models.TargetKey `json:"target"`
	Accumulated float64          `json:"accumulated"`
	Recomputed  float64          `json:"recomputed"`
}

// ReconcileReport summarizes one Reconcile run
type ReconcileReport struct {
	TargetType models.TargetType `json:"target_type"`
	Checked    int               `json:"checked"`
	Drifted    []Drift           `json:"drifted"`
}

// Reconcile recomputes every score of targetType from the event log
// through agg, replaces the accumulated values and reports the targets
// that drifted beyond DriftTolerance.
func (a *Accumulator) Reconcile(ctx context.Context, agg *Aggregator, targetType models.TargetType, start *time.Time) (*ReconcileReport, error) {
	weights := a.weights
	scores, err := agg.AggregateScores(ctx, ScoreQuery{
		TargetType: targetType,
		StartDate:  start,
		Weights:    &weights,
		DecayHours: a.decayHours,
	})
	if err != nil {
		return nil, err
	}
	now := agg.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	report := &ReconcileReport{TargetType: targetType, Drifted: []Drift{}}
	seen := make(map[models.TargetKey]bool, scores.Len())

	check := func(key models.TargetKey, accumulated, recomputed float64) {
		report.Checked++
		if math.Abs(accumulated-recomputed) > DriftTolerance {
			report.Drifted = append(report.Drifted, Drift{Target: key, Accumulated: accumulated, Recomputed: recomputed})
		}
	}

	for _, id := range scores.IDs() {
		key := models.TargetKey{Type: targetType, ID: id}
		seen[key] = true
		recomputed, _ := scores.Get(id)

		var accumulated float64
		if entry, ok := a.entries[key]; ok {
			accumulated = a.decay(entry.value, now.Sub(entry.at))
		}
		check(key, accumulated, recomputed)
		a.entries[key] = &decayedScore{value: recomputed, at: now}
	}

	for key, entry := range a.entries {
		if key.Type != targetType || seen[key] {
			continue
		}
		check(key, a.decay(entry.value, now.Sub(entry.at)), 0)
		delete(a.entries, key)
	}

	count := 0
	for key := range a.entries {
		if key.Type == targetType {
			count++
		}
	}
	metrics.Get().AccumulatorTargets.WithLabelValues(string(targetType)).Set(float64(count))

	if len(report.Drifted) > 0 {
		logger.Log.Warn("Accumulated scores drifted from event log",
			logger.WithTargetType(string(targetType)),
			zap.Int("checked", report.Checked),
			zap.Int("drifted", len(report.Drifted)),
		)
	}
	return report, nil
}

func (a *Accumulator) decay(v float64, age time.Duration) float64 {
	return HalfLifeDecay(v, age, a.decayHours)
}
