// Package trending ranks recent content of one kind by decayed engagement.
package trending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/qaforum/engagement/internal/cache"
	"github.com/qaforum/engagement/internal/engagement"
	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/metrics"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CandidateSource lists the ids eligible for trending
type CandidateSource interface {
	RecentIDs(ctx context.Context, targetType models.TargetType, since time.Time, filters map[string]interface{}) ([]int64, error)
}

// Options tunes one trending query
type Options struct {
	TopN       int                    `json:"top_n"`
	LastDays   int                    `json:"last_days"`
	DecayHours float64                `json:"decay_hours"`
	Filters    map[string]interface{} `json:"filters,omitempty"`
}

// DefaultOptions returns top 10 over the last week with a 72h half-life
func DefaultOptions() Options {
	return Options{TopN: 10, LastDays: 7, DecayHours: engagement.DefaultDecayHours}
}

// Service computes trending lists, optionally through a result cache
type Service struct {
	candidates CandidateSource
	aggregator *engagement.Aggregator
	cache      cache.Cache
	cacheTTL   time.Duration
}

// NewService creates a trending service. A nil cache disables caching.
func NewService(candidates CandidateSource, aggregator *engagement.Aggregator, c cache.Cache, cacheTTL time.Duration) *Service {
	return &Service{
		candidates: candidates,
		aggregator: aggregator,
		cache:      c,
		cacheTTL:   cacheTTL,
	}
}

// GetTrending returns at most opts.TopN targets of targetType by
// descending score. An unknown target type yields an empty list.
func (s *Service) GetTrending(ctx context.Context, targetType models.TargetType, opts Options) (out []engagement.ScoredTarget, err error) {
	if !targetType.Known() {
		logger.Log.Debug("Trending requested for unknown target type",
			logger.WithTargetType(string(targetType)),
		)
		return []engagement.ScoredTarget{}, nil
	}
	opts = opts.withDefaults()

	ctx, span := telemetry.StartSpan(ctx, "trending.get",
		attribute.String("target_type", string(targetType)),
		attribute.Int("top_n", opts.TopN),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	key := cacheKey(targetType, opts)
	if cached, ok := s.lookup(ctx, key); ok {
		return cached, nil
	}

	start := s.aggregator.Now().AddDate(0, 0, -opts.LastDays)
	ids, err := s.candidates.RecentIDs(ctx, targetType, start, opts.Filters)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("candidates", len(ids)))
	if len(ids) == 0 {
		return []engagement.ScoredTarget{}, nil
	}

	out, err = s.aggregator.TopN(ctx, opts.TopN, engagement.ScoreQuery{
		TargetType: targetType,
		TargetIDs:  ids,
		StartDate:  &start,
		DecayHours: opts.DecayHours,
	})
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, out)
	return out, nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopN <= 0 {
		o.TopN = d.TopN
	}
	if o.LastDays <= 0 {
		o.LastDays = d.LastDays
	}
	if o.DecayHours <= 0 {
		o.DecayHours = d.DecayHours
	}
	return o
}

func (s *Service) lookup(ctx context.Context, key string) ([]engagement.ScoredTarget, bool) {
	if s.cache == nil {
		return nil, false
	}
	m := metrics.Get()

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			m.CacheErrorsTotal.WithLabelValues("trending").Inc()
			logger.WarnWithFields("Trending cache read failed", err, zap.String("key", key))
		}
		m.CacheMissesTotal.WithLabelValues("trending").Inc()
		return nil, false
	}

	var out []engagement.ScoredTarget
	if err := json.Unmarshal(raw, &out); err != nil {
		m.CacheErrorsTotal.WithLabelValues("trending").Inc()
		logger.WarnWithFields("Discarding corrupt trending cache entry", err, zap.String("key", key))
		return nil, false
	}
	m.CacheHitsTotal.WithLabelValues("trending").Inc()
	return out, true
}

func (s *Service) store(ctx context.Context, key string, out []engagement.ScoredTarget) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		metrics.Get().CacheErrorsTotal.WithLabelValues("trending").Inc()
		logger.WarnWithFields("Trending cache write failed", err, zap.String("key", key))
	}
}

// cacheKey is deterministic for equal options, including filter order
func cacheKey(targetType models.TargetType, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "trending:%s:%d:%d:%g", targetType, opts.TopN, opts.LastDays, opts.DecayHours)

	cols := make([]string, 0, len(opts.Filters))
	for c := range opts.Filters {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		fmt.Fprintf(&b, ":%s=%T:%v", c, opts.Filters[c], opts.Filters[c])
	}
	return b.String()
}
