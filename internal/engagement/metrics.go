package engagement

import (
	"time"

	"github.com/qaforum/engagement/internal/models"
)

// Metrics is the bucketed engagement summary of one target
type Metrics struct {
	TotalEvents   int     `json:"total_events"`
	Likes         int     `json:"likes_events"`
	Dislikes      int     `json:"dislikes_events"`
	Reports       int     `json:"reports_events"`
	Shares        int     `json:"shares_events"`
	Comments      int     `json:"comments_events"`
	WeightedScore float64 `json:"weighted_score"`
}

// Map exposes the bucket counts under the keys the ranking engine weighs
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		string(BucketLikes):    float64(m.Likes),
		string(BucketDislikes): float64(m.Dislikes),
		string(BucketReports):  float64(m.Reports),
		string(BucketShares):   float64(m.Shares),
		string(BucketComments): float64(m.Comments),
	}
}

func (m *Metrics) count(b Bucket) {
	switch b {
	case BucketLikes:
		m.Likes++
	case BucketDislikes:
		m.Dislikes++
	case BucketReports:
		m.Reports++
	case BucketShares:
		m.Shares++
	case BucketComments:
		m.Comments++
	}
}

// ComputeMetrics summarizes evs as of now. With a nil weightDecay every
// event contributes 1.0 to WeightedScore, otherwise each contributes
// SmoothDecay(*weightDecay, age).
func ComputeMetrics(evs []models.Event, now time.Time, weightDecay *float64) Metrics {
	var m Metrics
	for i := range evs {
		e := &evs[i]
		m.TotalEvents++
		m.count(Classify(e.EventType))
		if weightDecay == nil {
			m.WeightedScore += 1.0
			continue
		}
		m.WeightedScore += SmoothDecay(*weightDecay, now.Sub(e.CreatedAt))
	}
	return m
}
