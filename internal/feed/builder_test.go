package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qaforum/engagement/internal/engagement"
	"github.com/qaforum/engagement/internal/events"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func int64Ptr(v int64) *int64 { return &v }

// fakeContent serves fixed content and counts comment queries
type fakeContent struct {
	questions     []models.Question
	answers       map[int64][]int64
	comments      []models.Comment
	questionsErr  error
	commentLevels int
	lastLimit     int
}

func (f *fakeContent) RecentQuestions(ctx context.Context, since time.Time, limit int) ([]models.Question, error) {
	f.lastLimit = limit
	if f.questionsErr != nil {
		return nil, f.questionsErr
	}
	var out []models.Question
	for _, q := range f.questions {
		if !q.CreatedAt.Before(since) {
			out = append(out, q)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeContent) AnswerIDs(ctx context.Context, questionID int64) ([]int64, error) {
	return f.answers[questionID], nil
}

func (f *fakeContent) ChildComments(ctx context.Context, parents []models.TargetKey) ([]models.Comment, error) {
	f.commentLevels++
	want := make(map[models.TargetKey]bool, len(parents))
	for _, p := range parents {
		want[p] = true
	}
	out := []models.Comment{}
	for _, c := range f.comments {
		if want[models.TargetKey{Type: c.TargetType, ID: c.TargetID}] {
			out = append(out, c)
		}
	}
	return out, nil
}

// failingStore fails reads for one question
type failingStore struct {
	events.Store
	failQuestion int64
}

func (s *failingStore) Find(ctx context.Context, q events.Query) ([]models.Event, error) {
	if q.TargetType == models.TargetQuestion && q.TargetID != nil && *q.TargetID == s.failQuestion {
		return nil, errors.New("replica lag")
	}
	return s.Store.Find(ctx, q)
}

func like(t *testing.T, store events.Store, typ models.EventType, target models.TargetType, id int64) {
	t.Helper()
	require.NoError(t, store.Append(context.Background(), &models.Event{
		EventType: typ, TargetType: target, TargetID: id, CreatedAt: now.Add(-time.Hour),
	}))
}

func newBuilder(store events.Store, content ContentSource) *Builder {
	agg := engagement.NewAggregator(events.NewReader(store, time.Second), engagement.WithClock(clock))
	return NewBuilder(content, agg, ranking.NewEngine(ranking.DefaultConfig(), clock), 2)
}

func sampleContent() *fakeContent {
	return &fakeContent{
		questions: []models.Question{
			{ID: 3, Title: "newest", CreatedAt: now.Add(-time.Hour)},
			{ID: 2, Title: "popular", UserID: int64Ptr(42), CreatedAt: now.Add(-2 * time.Hour)},
			{ID: 1, Title: "stale", CreatedAt: now.AddDate(0, 0, -60)},
		},
		answers: map[int64][]int64{2: {20, 21}},
	}
}

func TestBuildUserFeedRanksByEngagement(t *testing.T) {
	store := events.NewMemoryStore()
	like(t, store, models.QuestionLiked, models.TargetQuestion, 2)
	like(t, store, models.QuestionLiked, models.TargetQuestion, 2)
	like(t, store, models.AnswerLiked, models.TargetAnswer, 20)

	content := sampleContent()
	feed, err := newBuilder(store, content).BuildUserFeed(context.Background(), 7, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, feed.Items, 2)
	assert.Empty(t, feed.Failures)
	assert.Equal(t, int64(7), feed.UserID)
	assert.Equal(t, 20, content.lastLimit)

	top := feed.Items[0]
	assert.Equal(t, int64(2), top.ID)
	assert.Equal(t, 2, top.EngagementMetrics.Likes)
	assert.Greater(t, top.Score, 0.0)
	assert.False(t, top.IsAnonymous)
	assert.Equal(t, 1, top.AnswersMetrics[20].Likes)
	assert.Equal(t, 0, top.AnswersMetrics[21].Likes)
	assert.Nil(t, top.Comments)

	assert.Equal(t, int64(3), feed.Items[1].ID)
	assert.True(t, feed.Items[1].IsAnonymous)
}

func TestZeroOptionsIncludeAnswers(t *testing.T) {
	store := events.NewMemoryStore()
	like(t, store, models.AnswerLiked, models.TargetAnswer, 20)

	content := sampleContent()
	feed, err := newBuilder(store, content).BuildUserFeed(context.Background(), 7, Options{})
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, 20, content.lastLimit)

	var popular Item
	for _, item := range feed.Items {
		if item.ID == 2 {
			popular = item
		}
	}
	require.Len(t, popular.AnswersMetrics, 2)
	assert.Equal(t, 1, popular.AnswersMetrics[20].Likes)
	assert.Nil(t, popular.Comments)
}

func TestBuildUserFeedWithoutAnswers(t *testing.T) {
	opts := DefaultOptions()
	opts.ExcludeAnswers = true

	feed, err := newBuilder(events.NewMemoryStore(), sampleContent()).BuildUserFeed(context.Background(), 1, opts)
	require.NoError(t, err)
	for _, item := range feed.Items {
		assert.Nil(t, item.AnswersMetrics)
	}
}

func TestBuildUserFeedCommentTreeIsDepthBounded(t *testing.T) {
	content := sampleContent()
	content.comments = []models.Comment{
		{ID: 100, TargetType: models.TargetQuestion, TargetID: 3},
		{ID: 101, TargetType: models.TargetComment, TargetID: 100},
		{ID: 102, TargetType: models.TargetComment, TargetID: 101},
		{ID: 103, TargetType: models.TargetComment, TargetID: 102},
		{ID: 104, TargetType: models.TargetQuestion, TargetID: 3},
	}
	content.questions = content.questions[:1]

	opts := DefaultOptions()
	opts.IncludeComments = true
	opts.ExcludeAnswers = true

	feed, err := newBuilder(events.NewMemoryStore(), content).BuildUserFeed(context.Background(), 1, opts)
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)

	tree := feed.Items[0].Comments
	require.Len(t, tree, 2)
	assert.Equal(t, int64(100), tree[0].Comment.ID)
	assert.Equal(t, int64(104), tree[1].Comment.ID)

	level2 := tree[0].Replies
	require.Len(t, level2, 1)
	level3 := level2[0].Replies
	require.Len(t, level3, 1)
	assert.Equal(t, int64(102), level3[0].Comment.ID)
	assert.Equal(t, 3, level3[0].Depth)
	assert.Empty(t, level3[0].Replies, "103 is beyond the depth bound")
	assert.Equal(t, 3, content.commentLevels)
}

func TestBuildUserFeedIsolatesFailures(t *testing.T) {
	mem := events.NewMemoryStore()
	like(t, mem, models.QuestionLiked, models.TargetQuestion, 3)

	feed, err := newBuilder(&failingStore{Store: mem, failQuestion: 2}, sampleContent()).
		BuildUserFeed(context.Background(), 1, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, feed.Items, 1)
	assert.Equal(t, int64(3), feed.Items[0].ID)
	require.Contains(t, feed.Failures, int64(2))
	assert.Error(t, feed.Err())
}

func TestBuildUserFeedFailsWhenContentUnavailable(t *testing.T) {
	content := &fakeContent{questionsErr: errors.New("content store down")}
	_, err := newBuilder(events.NewMemoryStore(), content).BuildUserFeed(context.Background(), 1, DefaultOptions())
	assert.Error(t, err)
}

func TestBuildUserFeedEmpty(t *testing.T) {
	feed, err := newBuilder(events.NewMemoryStore(), &fakeContent{}).BuildUserFeed(context.Background(), 1, Options{})
	require.NoError(t, err)
	assert.NotNil(t, feed.Items)
	assert.Empty(t, feed.Items)
	assert.NoError(t, feed.Err())
}
