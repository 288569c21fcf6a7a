package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/qaforum/engagement/internal/events"
	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/models"
	"go.uber.org/zap"
)

// EventCounter counts grouped events. *events.Reader satisfies it.
type EventCounter interface {
	AggregateEvents(ctx context.Context, groupBy string, f events.Filter) ([]events.GroupCount, error)
}

// CTRMetric represents the click-through rate of one slice of feed traffic
type CTRMetric struct {
	Group       string  `json:"group"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"` // clicks/impressions * 100
}

// CalculateCTR compares feed_item_opened to feed_item_shown events since
// the given time, grouped by an event field (source when empty). Groups
// are sorted by name.
func CalculateCTR(ctx context.Context, counter EventCounter, since time.Time, groupBy string) ([]CTRMetric, error) {
	if groupBy == "" {
		groupBy = string(events.FieldSource)
	}

	count := func(typ models.EventType) (map[string]int64, error) {
		groups, err := counter.AggregateEvents(ctx, groupBy, events.Filter{EventType: typ, StartDate: &since})
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", typ, err)
		}
		out := make(map[string]int64, len(groups))
		for _, g := range groups {
			out[groupName(g.Value)] += g.Count
		}
		return out, nil
	}

	impressions, err := count(models.FeedItemShown)
	if err != nil {
		return nil, err
	}
	clicks, err := count(models.FeedItemOpened)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(impressions))
	for name := range impressions {
		names = append(names, name)
	}
	for name := range clicks {
		if _, ok := impressions[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	metrics := make([]CTRMetric, 0, len(names))
	for _, name := range names {
		m := CTRMetric{Group: name, Impressions: impressions[name], Clicks: clicks[name]}
		if m.Impressions > 0 {
			m.CTR = float64(m.Clicks) / float64(m.Impressions) * 100
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// LogCTRMetrics calculates and logs CTR per source for the past 24 hours
func LogCTRMetrics(ctx context.Context, counter EventCounter, now time.Time) error {
	metrics, err := CalculateCTR(ctx, counter, now.Add(-24*time.Hour), "")
	if err != nil {
		return err
	}
	for _, m := range metrics {
		logger.Log.Info("Feed CTR (last 24 hours)",
			zap.String("source", m.Group),
			zap.Int64("impressions", m.Impressions),
			zap.Int64("clicks", m.Clicks),
			zap.Float64("ctr_percent", m.CTR),
		)
	}
	return nil
}

func groupName(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
