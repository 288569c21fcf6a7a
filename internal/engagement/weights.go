package engagement

import (
	"math"
	"time"

	"github.com/qaforum/engagement/internal/models"
)

// Weights is an immutable per-event-type weight table. Types missing from
// the table weigh 0.
type Weights struct {
	table map[models.EventType]float64
}

// NewWeights copies table into a new weight set. The caller's map can be
// modified afterwards without affecting the result.
func NewWeights(table map[models.EventType]float64) Weights {
	cp := make(map[models.EventType]float64, len(table))
	for k, v := range table {
		cp[k] = v
	}
	return Weights{table: cp}
}

// DefaultScoreWeights returns the stock table used for decayed scoring
func DefaultScoreWeights() Weights {
	table := make(map[models.EventType]float64)
	for _, t := range models.AllEventTypes {
		switch {
		case t.HasSuffix("_created"):
			table[t] = 2.0
		case t.HasSuffix("_liked"):
			table[t] = 1.0
		case t.HasSuffix("_disliked"):
			table[t] = -1.0
		case t.HasSuffix("_reported"):
			table[t] = -2.0
		case t.HasSuffix("_shared"):
			table[t] = 2.0
		}
	}
	return Weights{table: table}
}

// Of returns the weight for t
func (w Weights) Of(t models.EventType) float64 {
	return w.table[t]
}

// Table returns a copy of the underlying table
func (w Weights) Table() map[models.EventType]float64 {
	cp := make(map[models.EventType]float64, len(w.table))
	for k, v := range w.table {
		cp[k] = v
	}
	return cp
}

// HalfLifeDecay scales weight by 0.5^(ageHours/decayHours). The result is
// halved every decayHours. A non-positive decayHours disables decay.
func HalfLifeDecay(weight float64, age time.Duration, decayHours float64) float64 {
	if decayHours <= 0 {
		return weight
	}
	return weight * math.Pow(0.5, ageHours(age)/decayHours)
}

// SmoothDecay returns 1/(1+rate)^ageHours, the per-event contribution used
// by weighted engagement metrics
func SmoothDecay(rate float64, age time.Duration) float64 {
	return 1.0 / math.Pow(1.0+rate, ageHours(age))
}

// ageHours clamps negative ages to zero so events stamped slightly in the
// future by a skewed clock never weigh more than fresh ones
func ageHours(age time.Duration) float64 {
	if age < 0 {
		return 0
	}
	return age.Hours()
}
