package engagement

import (
	"sort"
	"time"

	"github.com/qaforum/engagement/internal/models"
)

// ScoredTarget pairs a target id with its decayed score
type ScoredTarget struct {
	TargetID int64   `json:"target_id"`
	Score    float64 `json:"score"`
}

// Scores maps target ids to decayed scores and remembers the order in
// which ids were first seen. Ties in Ranked keep that order.
type Scores struct {
	order  []int64
	values map[int64]float64
}

func newScores() *Scores {
	return &Scores{values: make(map[int64]float64)}
}

func (s *Scores) add(id int64, v float64) {
	if _, ok := s.values[id]; !ok {
		s.order = append(s.order, id)
	}
	s.values[id] += v
}

// Len returns the number of scored targets
func (s *Scores) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Get returns the score of id and whether it was scored at all
func (s *Scores) Get(id int64) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.values[id]
	return v, ok
}

// IDs returns target ids in encounter order
func (s *Scores) IDs() []int64 {
	if s == nil {
		return nil
	}
	out := make([]int64, len(s.order))
	copy(out, s.order)
	return out
}

// Map returns a copy of the scores keyed by target id
func (s *Scores) Map() map[int64]float64 {
	out := make(map[int64]float64, s.Len())
	if s == nil {
		return out
	}
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Total sums every score
func (s *Scores) Total() float64 {
	var total float64
	for _, id := range s.IDs() {
		total += s.values[id]
	}
	return total
}

// Ranked returns every target sorted by descending score
func (s *Scores) Ranked() []ScoredTarget {
	out := make([]ScoredTarget, 0, s.Len())
	for _, id := range s.IDs() {
		out = append(out, ScoredTarget{TargetID: id, Score: s.values[id]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Top returns at most n entries of Ranked
func (s *Scores) Top(n int) []ScoredTarget {
	if n <= 0 {
		return []ScoredTarget{}
	}
	ranked := s.Ranked()
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// ComputeScores folds evs into decayed per-target scores as of now. When
// ids is non-nil only those targets are scored.
func ComputeScores(evs []models.Event, weights Weights, decayHours float64, now time.Time, ids []int64) *Scores {
	scores := newScores()

	var allowed map[int64]bool
	if ids != nil {
		allowed = make(map[int64]bool, len(ids))
		for _, id := range ids {
			allowed[id] = true
		}
	}

	for i := range evs {
		e := &evs[i]
		if allowed != nil && !allowed[e.TargetID] {
			continue
		}
		scores.add(e.TargetID, HalfLifeDecay(weights.Of(e.EventType), now.Sub(e.CreatedAt), decayHours))
	}
	return scores
}
