// Package feed assembles ranked question feeds with their engagement
// metrics, answer metrics and comment trees.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qaforum/engagement/internal/engagement"
	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/metrics"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/ranking"
	"github.com/qaforum/engagement/internal/telemetry"
	"github.com/qaforum/engagement/internal/workerpool"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ContentSource reads the content a feed is built from
type ContentSource interface {
	RecentQuestions(ctx context.Context, since time.Time, limit int) ([]models.Question, error)
	AnswerIDs(ctx context.Context, questionID int64) ([]int64, error)
	ChildComments(ctx context.Context, parents []models.TargetKey) ([]models.Comment, error)
}

// Options tunes one feed build. The zero value builds the default feed:
// answer metrics on, comments off.
type Options struct {
	Limit           int  `json:"limit"`
	ExcludeAnswers  bool `json:"exclude_answers"`
	IncludeComments bool `json:"include_comments"`
	SinceDays       int  `json:"since_days"`
	MaxCommentDepth int  `json:"max_comment_depth"`
}

// DefaultOptions returns 20 items from the last 30 days with answer
// metrics and without comments
func DefaultOptions() Options {
	return Options{
		Limit:           20,
		IncludeComments: false,
		SinceDays:       30,
		MaxCommentDepth: 3,
	}
}

// CommentNode is one comment with its replies
type CommentNode struct {
	Comment models.Comment `json:"comment"`
	Depth   int            `json:"depth"`
	Replies []*CommentNode `json:"replies,omitempty"`
}

// Item is one ranked question in a feed
type Item struct {
	ID                int64                        `json:"id"`
	Type              models.TargetType            `json:"type"`
	Title             string                       `json:"title"`
	Content           string                       `json:"content"`
	UserID            *int64                       `json:"user_id,omitempty"`
	IsAnonymous       bool                         `json:"is_anonymous"`
	CreatedAt         time.Time                    `json:"created_at"`
	EngagementMetrics engagement.Metrics           `json:"engagement_metrics"`
	AnswersMetrics    map[int64]engagement.Metrics `json:"answers_metrics,omitempty"`
	Comments          []*CommentNode               `json:"comments,omitempty"`
	Score             float64                      `json:"score"`
}

// Feed is a ranked list of items plus the questions that could not be
// assembled
type Feed struct {
	UserID      int64           `json:"user_id"`
	Items       []Item          `json:"items"`
	Failures    map[int64]error `json:"-"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Builder builds feeds. It is safe for concurrent use.
type Builder struct {
	content    ContentSource
	aggregator *engagement.Aggregator
	ranker     *ranking.Engine
	workers    int
}

// NewBuilder creates a feed builder. A non-positive workers uses the pool
// default.
func NewBuilder(content ContentSource, aggregator *engagement.Aggregator, ranker *ranking.Engine, workers int) *Builder {
	return &Builder{content: content, aggregator: aggregator, ranker: ranker, workers: workers}
}

// BuildUserFeed returns the ranked recent-question feed. userID identifies
// the caller; the feed itself is the same for every user. Questions whose
// metrics cannot be computed are left out and reported in Failures. Only
// failing to list the questions fails the whole build.
func (b *Builder) BuildUserFeed(ctx context.Context, userID int64, opts Options) (_ *Feed, err error) {
	opts = opts.withDefaults()
	ctx, span := telemetry.StartSpan(ctx, "feed.build_user",
		attribute.Int64("user_id", userID),
		attribute.Int("limit", opts.Limit),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	startedAt := time.Now()
	defer func() {
		metrics.Get().FeedGenerationTime.WithLabelValues("user").Observe(time.Since(startedAt).Seconds())
	}()

	now := b.aggregator.Now()
	start := now.AddDate(0, 0, -opts.SinceDays)

	questions, err := b.content.RecentQuestions(ctx, start, opts.Limit)
	if err != nil {
		return nil, err
	}

	items, errs := workerpool.Map(ctx, b.workers, questions, func(ctx context.Context, q models.Question) (Item, error) {
		return b.buildItem(ctx, q, start, opts)
	})

	feed := &Feed{UserID: userID, Failures: make(map[int64]error), GeneratedAt: now}
	built := make([]Item, 0, len(items))
	for i, item := range items {
		if errs[i] != nil {
			qid := questions[i].ID
			feed.Failures[qid] = errs[i]
			metrics.Get().TargetFailuresTotal.WithLabelValues("feed").Inc()
			logger.Log.Warn("Dropping feed item",
				logger.WithUserID(userID),
				zap.Int64("question_id", qid),
				zap.Error(errs[i]),
			)
			continue
		}
		built = append(built, item)
	}

	feed.Items = b.rank(built)
	span.SetAttributes(
		attribute.Int("items", len(feed.Items)),
		attribute.Int("failures", len(feed.Failures)),
	)
	return feed, nil
}

func (b *Builder) buildItem(ctx context.Context, q models.Question, start time.Time, opts Options) (Item, error) {
	m, err := b.aggregator.EngagementMetrics(ctx, models.TargetQuestion, q.ID, engagement.MetricsOptions{StartDate: &start})
	if err != nil {
		return Item{}, err
	}

	item := Item{
		ID:                q.ID,
		Type:              models.TargetQuestion,
		Title:             q.Title,
		Content:           q.Content,
		UserID:            q.UserID,
		IsAnonymous:       q.UserID == nil,
		CreatedAt:         q.CreatedAt,
		EngagementMetrics: m,
	}

	if !opts.ExcludeAnswers {
		ids, err := b.content.AnswerIDs(ctx, q.ID)
		if err != nil {
			return Item{}, err
		}
		batch := b.aggregator.BatchMetrics(ctx, models.TargetAnswer, ids, engagement.MetricsOptions{StartDate: &start})
		if err := batch.Err(); err != nil {
			return Item{}, fmt.Errorf("answer metrics: %w", err)
		}
		item.AnswersMetrics = batch.Results
	}

	if opts.IncludeComments {
		tree, err := b.commentTree(ctx, models.TargetKey{Type: models.TargetQuestion, ID: q.ID}, opts.MaxCommentDepth)
		if err != nil {
			return Item{}, err
		}
		item.Comments = tree
	}

	return item, nil
}

// commentTree walks replies breadth first, one query per level, and stops
// after maxDepth levels
func (b *Builder) commentTree(ctx context.Context, root models.TargetKey, maxDepth int) ([]*CommentNode, error) {
	roots := []*CommentNode{}
	nodes := make(map[models.TargetKey]*CommentNode)
	frontier := []models.TargetKey{root}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		children, err := b.content.ChildComments(ctx, frontier)
		if err != nil {
			return nil, err
		}

		next := make([]models.TargetKey, 0, len(children))
		for _, c := range children {
			key := models.TargetKey{Type: models.TargetComment, ID: c.ID}
			if _, seen := nodes[key]; seen {
				continue
			}
			node := &CommentNode{Comment: c, Depth: depth}
			nodes[key] = node

			parent := models.TargetKey{Type: c.TargetType, ID: c.TargetID}
			if parent == root {
				roots = append(roots, node)
			} else if p, ok := nodes[parent]; ok {
				p.Replies = append(p.Replies, node)
			}
			next = append(next, key)
		}
		frontier = next
	}
	return roots, nil
}

func (b *Builder) rank(items []Item) []Item {
	if len(items) == 0 {
		return []Item{}
	}
	byKey := make(map[models.TargetKey]Item, len(items))
	in := make([]ranking.Item, len(items))
	for i, item := range items {
		key := models.TargetKey{Type: item.Type, ID: item.ID}
		byKey[key] = item
		in[i] = ranking.Item{Key: key, Metrics: item.EngagementMetrics.Map(), CreatedAt: item.CreatedAt}
	}

	ranked := b.ranker.Rank(in)
	out := make([]Item, len(ranked))
	for i, r := range ranked {
		item := byKey[r.Key]
		item.Score = r.Score
		out[i] = item
	}
	return out
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Limit <= 0 {
		o.Limit = d.Limit
	}
	if o.SinceDays <= 0 {
		o.SinceDays = d.SinceDays
	}
	if o.MaxCommentDepth <= 0 {
		o.MaxCommentDepth = d.MaxCommentDepth
	}
	return o
}

// Err joins every per-question failure, or nil when there were none
func (f *Feed) Err() error {
	if len(f.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(f.Failures))
	for qid, err := range f.Failures {
		errs = append(errs, fmt.Errorf("question %d: %w", qid, err))
	}
	return errors.Join(errs...)
}
