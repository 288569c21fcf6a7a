package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qaforum/engagement/internal/engagement"
	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/events"
	"github.com/qaforum/engagement/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 7, 15, 18, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func act(t *testing.T, store events.Store, actor int64, typ models.EventType, target models.TargetType, id int64, at time.Time) {
	t.Helper()
	a := actor
	require.NoError(t, store.Append(context.Background(), &models.Event{
		ActorID:    &a,
		EventType:  typ,
		TargetType: target,
		TargetID:   id,
		CreatedAt:  at,
	}))
}

func services(store events.Store) (*ActivityService, *ProfileService) {
	reader := events.NewReader(store, time.Second)
	activity := NewActivityService(reader, clock)
	agg := engagement.NewAggregator(reader, engagement.WithClock(clock))
	return activity, NewProfileService(activity, agg)
}

func seeded(t *testing.T) *events.MemoryStore {
	store := events.NewMemoryStore()
	act(t, store, 1, models.QuestionCreated, models.TargetQuestion, 5, now.Add(-48*time.Hour))
	act(t, store, 1, models.AnswerCreated, models.TargetAnswer, 9, now.Add(-24*time.Hour))
	act(t, store, 1, models.CommentCreated, models.TargetComment, 5, now.Add(-2*time.Hour))
	act(t, store, 1, models.CommentLiked, models.TargetComment, 7, now.Add(-time.Hour))
	act(t, store, 1, models.AnswerShared, models.TargetAnswer, 9, now.Add(-time.Hour))
	act(t, store, 1, models.QuestionViewed, models.TargetQuestion, 5, now.Add(-30*time.Minute))
	act(t, store, 1, models.QuestionReported, models.TargetQuestion, 8, now.AddDate(0, 0, -45))
	// someone else
	act(t, store, 2, models.QuestionLiked, models.TargetQuestion, 5, now)
	return store
}

func TestGetUserEvents(t *testing.T) {
	activity, _ := services(seeded(t))
	ctx := context.Background()

	all, err := activity.GetUserEvents(ctx, 1, nil, nil, "")
	require.NoError(t, err)
	assert.Len(t, all, 7)

	start := now.Add(-3 * time.Hour)
	recentComments, err := activity.GetUserEvents(ctx, 1, &start, nil, models.TargetComment)
	require.NoError(t, err)
	assert.Len(t, recentComments, 2)
}

func TestGetUserActivitySummary(t *testing.T) {
	activity, _ := services(seeded(t))

	summary, err := activity.GetUserActivitySummary(context.Background(), 1, 30)
	require.NoError(t, err)
	assert.Equal(t, ActivitySummary{
		TotalEvents:      6,
		QuestionsCreated: 1,
		AnswersCreated:   1,
		CommentsCreated:  1,
		Likes:            1,
		Shares:           1,
	}, summary)
	assert.Equal(t, 3, summary.Contributions())

	_, err = activity.GetUserActivitySummary(context.Background(), 1, -1)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestGetLastActive(t *testing.T) {
	activity, _ := services(seeded(t))

	last, err := activity.GetLastActive(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(now.Add(-30*time.Minute)))

	never, err := activity.GetLastActive(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, never)
}

func TestGetProfileMetricsKeysByTarget(t *testing.T) {
	_, profiles := services(seeded(t))

	profile, err := profiles.GetProfileMetrics(context.Background(), 1, 30)
	require.NoError(t, err)

	assert.Equal(t, int64(1), profile.UserID)
	assert.Equal(t, 3, profile.TotalContributions)
	require.NotNil(t, profile.LastActive)

	// question:5 and comment:5 both exist and stay separate
	q5, ok := profile.EngagementScores[models.TargetKey{Type: models.TargetQuestion, ID: 5}]
	require.True(t, ok)
	c5, ok := profile.EngagementScores[models.TargetKey{Type: models.TargetComment, ID: 5}]
	require.True(t, ok)
	assert.InDelta(t, engagement.HalfLifeDecay(2, 48*time.Hour, 72), q5, 1e-9)
	assert.InDelta(t, engagement.HalfLifeDecay(2, 2*time.Hour, 72), c5, 1e-9)
	assert.NotContains(t, profile.EngagementScores, models.TargetKey{Type: models.TargetQuestion, ID: 8}, "outside the window")

	var sum float64
	for _, v := range profile.EngagementScores {
		sum += v
	}
	assert.InDelta(t, sum, profile.OverallScore, 1e-12)
}

func TestGetProfileMetricsFailsOnStoreError(t *testing.T) {
	store := events.NewMemoryStore()
	store.FindFunc = func(ctx context.Context, q events.Query) ([]models.Event, error) {
		return nil, errors.New("connection reset")
	}
	_, profiles := services(store)

	_, err := profiles.GetProfileMetrics(context.Background(), 1, 30)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnavailable))
}
