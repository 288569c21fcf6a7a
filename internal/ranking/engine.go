// Package ranking orders content by weighted engagement with a recency
// half-life applied on top.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/qaforum/engagement/internal/models"
)

// DefaultDecayHours is the recency half-life used when Config leaves it unset
const DefaultDecayHours = 72.0

// DefaultWeights returns the stock per-metric weights
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"likes":    1.0,
		"dislikes": -1.0,
		"shares":   2.0,
		"reports":  -2.0,
		"comments": 1.5,
	}
}

// Config parameterizes an Engine. A nil Weights map uses DefaultWeights; an
// empty non-nil map weighs every metric at zero.
type Config struct {
	Weights    map[string]float64
	DecayHours float64
}

// DefaultConfig returns the stock weights with a 72h half-life
func DefaultConfig() Config {
	return Config{Weights: DefaultWeights(), DecayHours: DefaultDecayHours}
}

// Item is one rankable unit of content
type Item struct {
	Key       models.TargetKey   `json:"key"`
	Metrics   map[string]float64 `json:"metrics"`
	CreatedAt time.Time          `json:"created_at"`
	Score     float64            `json:"score"`
}

type weight struct {
	key   string
	value float64
}

// Engine scores and orders items. It holds its own copy of the weights
// and is safe for concurrent use.
type Engine struct {
	// weights is sorted by key so every Score sums in the same order
	weights    []weight
	decayHours float64
	now        func() time.Time
}

// NewEngine creates an engine from cfg. A nil now uses time.Now.
func NewEngine(cfg Config, now func() time.Time) *Engine {
	src := cfg.Weights
	if src == nil {
		src = DefaultWeights()
	}
	weights := make([]weight, 0, len(src))
	for k, v := range src {
		weights = append(weights, weight{key: k, value: v})
	}
	sort.Slice(weights, func(i, j int) bool { return weights[i].key < weights[j].key })

	decay := cfg.DecayHours
	if decay <= 0 {
		decay = DefaultDecayHours
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{weights: weights, decayHours: decay, now: now}
}

// Score weighs metrics and decays the sum by the age of createdAt. A zero
// createdAt is treated as brand new.
func (e *Engine) Score(metrics map[string]float64, createdAt time.Time) float64 {
	var score float64
	for _, w := range e.weights {
		score += metrics[w.key] * w.value
	}

	now := e.now()
	if createdAt.IsZero() {
		createdAt = now
	}
	age := now.Sub(createdAt).Hours()
	if age < 0 {
		age = 0
	}
	return score * math.Pow(0.5, age/e.decayHours)
}

// Rank returns a new slice of items ordered by descending score, each with
// Score filled in. Equal scores keep their input order and the input
// slice is left untouched.
func (e *Engine) Rank(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		item.Score = e.Score(item.Metrics, item.CreatedAt)
		out[i] = item
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
