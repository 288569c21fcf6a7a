package ranking

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/qaforum/engagement/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func item(id int64, likes float64, ageHours float64) Item {
	return Item{
		Key:       models.TargetKey{Type: models.TargetQuestion, ID: id},
		Metrics:   map[string]float64{"likes": likes},
		CreatedAt: now.Add(-time.Duration(ageHours * float64(time.Hour))),
	}
}

func TestScore(t *testing.T) {
	e := NewEngine(DefaultConfig(), fixedClock)

	metrics := map[string]float64{"likes": 4, "dislikes": 1, "shares": 1, "reports": 1, "comments": 2}
	// 4 - 1 + 2 - 2 + 3
	assert.Equal(t, 6.0, e.Score(metrics, now))
	assert.InDelta(t, 3.0, e.Score(metrics, now.Add(-72*time.Hour)), 1e-12)
	assert.Equal(t, 6.0, e.Score(metrics, time.Time{}), "zero time counts as new")
	assert.Equal(t, 0.0, e.Score(nil, now))
}

func TestEngineCopiesWeights(t *testing.T) {
	weights := map[string]float64{"likes": 1}
	e := NewEngine(Config{Weights: weights}, fixedClock)
	weights["likes"] = 50

	assert.Equal(t, 1.0, e.Score(map[string]float64{"likes": 1}, now))
}

func TestEmptyWeightsScoreZero(t *testing.T) {
	e := NewEngine(Config{Weights: map[string]float64{}}, fixedClock)
	assert.Equal(t, 0.0, e.Score(map[string]float64{"likes": 10}, now))
}

func TestRank(t *testing.T) {
	e := NewEngine(DefaultConfig(), fixedClock)
	items := []Item{
		item(1, 1, 0),
		item(2, 10, 0),
		item(3, 10, 72),
		item(4, 1, 0),
	}
	input := append([]Item(nil), items...)

	ranked := e.Rank(items)
	require.Len(t, ranked, 4)

	ids := make([]int64, len(ranked))
	for i, it := range ranked {
		ids[i] = it.Key.ID
	}
	assert.Equal(t, []int64{2, 3, 1, 4}, ids)
	assert.Equal(t, 10.0, ranked[0].Score)
	assert.Equal(t, input, items, "input must not be reordered or scored")
	assert.Empty(t, e.Rank(nil))
}

func TestFractionalWeightsScoreDeterministically(t *testing.T) {
	e := NewEngine(Config{Weights: map[string]float64{
		"likes":    0.1,
		"dislikes": 0.2,
		"shares":   0.3,
		"reports":  -0.7,
		"comments": 0.15,
	}}, fixedClock)
	metrics := map[string]float64{"likes": 13, "dislikes": 3, "shares": 7, "reports": 1, "comments": 9}

	first := e.Score(metrics, now)
	for i := 0; i < 200; i++ {
		require.Equal(t, first, e.Score(metrics, now))
	}

	items := make([]Item, 4)
	for i := range items {
		items[i] = Item{
			Key:       models.TargetKey{Type: models.TargetQuestion, ID: int64(i + 1)},
			Metrics:   metrics,
			CreatedAt: now,
		}
	}
	for i := 0; i < 200; i++ {
		ranked := e.Rank(items)
		for j, it := range ranked {
			require.Equal(t, int64(j+1), it.Key.ID, "equal scores keep input order")
		}
	}
}

func TestPropertyRankIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	e := NewEngine(DefaultConfig(), fixedClock)

	properties.Property("ranking a ranked list changes nothing", prop.ForAll(
		func(likes []int) bool {
			items := make([]Item, len(likes))
			for i, l := range likes {
				items[i] = item(int64(i), float64(l), float64(i%5))
			}
			once := e.Rank(items)
			twice := e.Rank(once)
			for i := range once {
				if once[i].Key != twice[i].Key {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(-5, 20)),
	))

	properties.Property("result is sorted by descending score", prop.ForAll(
		func(likes []int) bool {
			items := make([]Item, len(likes))
			for i, l := range likes {
				items[i] = item(int64(i), float64(l), 0)
			}
			ranked := e.Rank(items)
			for i := 1; i < len(ranked); i++ {
				if ranked[i].Score > ranked[i-1].Score {
					return false
				}
			}
			return len(ranked) == len(items)
		},
		gen.SliceOf(gen.IntRange(-5, 20)),
	))

	properties.TestingRun(t)
}
