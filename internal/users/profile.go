package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/qaforum/engagement/internal/engagement"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Profile combines a user's activity with the decayed scores of the
// targets they acted on
type Profile struct {
	UserID             int64                        `json:"user_id"`
	TotalContributions int                          `json:"total_contributions"`
	ActivitySummary    ActivitySummary              `json:"activity_summary"`
	LastActive         *time.Time                   `json:"last_active"`
	EngagementScores   map[models.TargetKey]float64 `json:"engagement_scores"`
	OverallScore       float64                      `json:"overall_score"`
}

// ProfileService builds user profiles
type ProfileService struct {
	activity   *ActivityService
	aggregator *engagement.Aggregator
}

// NewProfileService creates a profile service
func NewProfileService(activity *ActivityService, aggregator *engagement.Aggregator) *ProfileService {
	return &ProfileService{activity: activity, aggregator: aggregator}
}

// GetProfileMetrics builds the profile of userID over the last lastDays.
// Scores are keyed by target type and id so a question and a comment
// sharing an id never overwrite each other. Any failing part fails the
// whole profile and cancels the rest.
func (p *ProfileService) GetProfileMetrics(ctx context.Context, userID int64, lastDays int) (_ *Profile, err error) {
	ctx, span := telemetry.StartSpan(ctx, "users.profile_metrics", attribute.Int64("user_id", userID))
	defer func() { telemetry.EndSpan(span, err) }()

	profile := &Profile{
		UserID:           userID,
		EngagementScores: make(map[models.TargetKey]float64),
	}
	start := p.aggregator.Now().AddDate(0, 0, -lastDays)
	actor := userID

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := p.activity.GetUserActivitySummary(gctx, userID, lastDays)
		if err != nil {
			return err
		}
		profile.ActivitySummary = summary
		return nil
	})
	g.Go(func() error {
		last, err := p.activity.GetLastActive(gctx, userID)
		if err != nil {
			return err
		}
		profile.LastActive = last
		return nil
	})

	for _, targetType := range models.KnownTargetTypes {
		targetType := targetType
		g.Go(func() error {
			scores, err := p.aggregator.AggregateScores(gctx, engagement.ScoreQuery{
				TargetType: targetType,
				ActorID:    &actor,
				StartDate:  &start,
			})
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range scores.IDs() {
				v, _ := scores.Get(id)
				profile.EngagementScores[models.TargetKey{Type: targetType, ID: id}] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	profile.TotalContributions = profile.ActivitySummary.Contributions()
	keys := make([]models.TargetKey, 0, len(profile.EngagementScores))
	for k := range profile.EngagementScores {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].ID < keys[j].ID
	})
	for _, k := range keys {
		profile.OverallScore += profile.EngagementScores[k]
	}
	return profile, nil
}
