package engagement

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/qaforum/engagement/internal/models"
)

func genEventType() gopter.Gen {
	values := make([]interface{}, len(models.AllEventTypes))
	for i, t := range models.AllEventTypes {
		values[i] = t
	}
	return gen.OneConstOf(values...)
}

func TestPropertyBucketsNeverExceedTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("bucket counts sum to at most total", prop.ForAll(
		func(types []models.EventType) bool {
			evs := make([]models.Event, len(types))
			for i, typ := range types {
				evs[i] = models.Event{EventType: typ, CreatedAt: testNow}
			}
			m := ComputeMetrics(evs, testNow, nil)
			buckets := m.Likes + m.Dislikes + m.Reports + m.Shares + m.Comments
			return m.TotalEvents == len(types) && buckets <= m.TotalEvents
		},
		gen.SliceOf(genEventType(), reflect.TypeOf(models.EventType(""))),
	))

	properties.TestingRun(t)
}

func TestPropertyHalfLifeDecayStrictlyDecreases(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("older events weigh strictly less but never zero", prop.ForAll(
		func(ageMinutes int64, extraMinutes int64, decayHours float64) bool {
			younger := HalfLifeDecay(1, time.Duration(ageMinutes)*time.Minute, decayHours)
			older := HalfLifeDecay(1, time.Duration(ageMinutes+extraMinutes)*time.Minute, decayHours)
			return older < younger && older > 0
		},
		gen.Int64Range(0, 60*24*30),
		gen.Int64Range(1, 60*24*30),
		gen.Float64Range(24, 500),
	))

	properties.Property("one half-life halves the weight", prop.ForAll(
		func(weight float64, decayHours float64) bool {
			age := time.Duration(decayHours * float64(time.Hour))
			got := HalfLifeDecay(weight, age, decayHours)
			return math.Abs(got-weight/2) <= 1e-9*math.Max(1, math.Abs(weight))
		},
		gen.Float64Range(-100, 100),
		gen.Float64Range(1, 500),
	))

	properties.TestingRun(t)
}

func TestPropertyScoresAreOrderIndependent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("reversing the log leaves totals unchanged", prop.ForAll(
		func(types []models.EventType, ages []int64) bool {
			n := len(types)
			if len(ages) < n {
				n = len(ages)
			}
			evs := make([]models.Event, n)
			for i := 0; i < n; i++ {
				evs[i] = models.Event{EventType: types[i], TargetID: int64(i % 3), CreatedAt: testNow.Add(-time.Duration(ages[i]) * time.Minute)}
			}
			reversed := make([]models.Event, n)
			for i := range evs {
				reversed[n-1-i] = evs[i]
			}

			w := DefaultScoreWeights()
			a := ComputeScores(evs, w, 72, testNow, nil).Map()
			b := ComputeScores(reversed, w, 72, testNow, nil).Map()
			for id, v := range a {
				if math.Abs(v-b[id]) > 1e-9 {
					return false
				}
			}
			return len(a) == len(b)
		},
		gen.SliceOf(genEventType(), reflect.TypeOf(models.EventType(""))),
		gen.SliceOf(gen.Int64Range(0, 60*24*14)),
	))

	properties.TestingRun(t)
}
