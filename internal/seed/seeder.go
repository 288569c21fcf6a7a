// Package seed fills a development database with plausible questions,
// answers, comments and the engagement events recorded against them.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/qaforum/engagement/internal/events"
	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/repository"
	"go.uber.org/zap"
)

// Options sizes a seed run
type Options struct {
	Users         int
	Questions     int
	MaxAnswers    int // per question
	MaxComments   int // per question or answer
	EventsPerUser int
	Days          int
	// Seed makes a run reproducible; 0 seeds from the clock
	Seed int64
}

// DefaultOptions returns a dataset big enough to make trending interesting
func DefaultOptions() Options {
	return Options{
		Users:         50,
		Questions:     200,
		MaxAnswers:    4,
		MaxComments:   3,
		EventsPerUser: 40,
		Days:          30,
	}
}

// Result counts what a seed run created
type Result struct {
	Questions int `json:"questions"`
	Answers   int `json:"answers"`
	Comments  int `json:"comments"`
	Events    int `json:"events"`
}

// Seeder handles database seeding operations
type Seeder struct {
	content  repository.ContentRepository
	recorder *events.Recorder
	now      func() time.Time
	rng      *rand.Rand
}

// NewSeeder creates a new seeder instance
func NewSeeder(content repository.ContentRepository, recorder *events.Recorder, now func() time.Time) *Seeder {
	if now == nil {
		now = time.Now
	}
	return &Seeder{content: content, recorder: recorder, now: now}
}

// target is a piece of seeded content events can point at
type target struct {
	key       models.TargetKey
	owner     *int64
	createdAt time.Time
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev(ctx context.Context, opts Options) (*Result, error) {
	if opts.Users <= 0 || opts.Questions <= 0 {
		return nil, fmt.Errorf("seed needs at least one user and one question")
	}
	if opts.Days <= 0 {
		opts.Days = DefaultOptions().Days
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Seed returns an error only for invalid sources
	_ = gofakeit.Seed(seed)
	s.rng = rand.New(rand.NewSource(seed))

	res := &Result{}
	now := s.now()
	start := now.AddDate(0, 0, -opts.Days)

	logger.Log.Info("Creating questions...", zap.Int("count", opts.Questions))
	targets, err := s.seedQuestions(ctx, opts, start, now, res)
	if err != nil {
		return res, fmt.Errorf("failed to seed questions: %w", err)
	}

	logger.Log.Info("Creating answers...")
	answers, err := s.seedAnswers(ctx, opts, targets, now, res)
	if err != nil {
		return res, fmt.Errorf("failed to seed answers: %w", err)
	}
	targets = append(targets, answers...)

	logger.Log.Info("Creating comments...")
	comments, err := s.seedComments(ctx, opts, targets, now, res)
	if err != nil {
		return res, fmt.Errorf("failed to seed comments: %w", err)
	}
	targets = append(targets, comments...)

	logger.Log.Info("Creating engagement events...", zap.Int("users", opts.Users))
	if err := s.seedEngagement(ctx, opts, targets, now, res); err != nil {
		return res, fmt.Errorf("failed to seed engagement: %w", err)
	}

	logger.Log.Info("✅ Seeding complete",
		zap.Int("questions", res.Questions),
		zap.Int("answers", res.Answers),
		zap.Int("comments", res.Comments),
		zap.Int("events", res.Events),
	)
	return res, nil
}

func (s *Seeder) seedQuestions(ctx context.Context, opts Options, start, now time.Time, res *Result) ([]target, error) {
	topics := []string{"go", "rust", "databases", "networking", "career", "testing", "devops"}
	out := make([]target, 0, opts.Questions)

	for i := 0; i < opts.Questions; i++ {
		q := models.Question{
			Title:     gofakeit.Question(),
			Content:   gofakeit.HipsterSentence(),
			Topic:     topics[s.rng.Intn(len(topics))],
			CreatedAt: gofakeit.DateRange(start, now),
		}
		// About one in ten questions is asked anonymously
		if s.rng.Float32() >= 0.1 {
			q.UserID = s.user(opts)
		}
		if err := s.content.CreateQuestion(ctx, &q); err != nil {
			return nil, err
		}
		res.Questions++

		t := target{key: models.TargetKey{Type: models.TargetQuestion, ID: q.ID}, owner: q.UserID, createdAt: q.CreatedAt}
		if err := s.emit(ctx, models.QuestionCreated, t, q.UserID, q.CreatedAt, "", res); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Seeder) seedAnswers(ctx context.Context, opts Options, questions []target, now time.Time, res *Result) ([]target, error) {
	var out []target
	for _, q := range questions {
		n := 0
		if opts.MaxAnswers > 0 {
			n = s.rng.Intn(opts.MaxAnswers + 1)
		}
		for i := 0; i < n; i++ {
			a := models.Answer{
				QuestionID: q.key.ID,
				Content:    gofakeit.HipsterSentence(),
				UserID:     s.user(opts),
				CreatedAt:  gofakeit.DateRange(q.createdAt, now),
			}
			if err := s.content.CreateAnswer(ctx, &a); err != nil {
				return nil, err
			}
			res.Answers++

			t := target{key: models.TargetKey{Type: models.TargetAnswer, ID: a.ID}, owner: a.UserID, createdAt: a.CreatedAt}
			if err := s.emit(ctx, models.AnswerCreated, t, a.UserID, a.CreatedAt, "", res); err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// seedComments comments on questions and answers, then replies to about
// half of those comments once
func (s *Seeder) seedComments(ctx context.Context, opts Options, parents []target, now time.Time, res *Result) ([]target, error) {
	var out []target
	create := func(parent target) (target, error) {
		c := models.Comment{
			Content:    gofakeit.HipsterSentence(),
			UserID:     s.user(opts),
			Anonymous:  s.rng.Float32() < 0.05,
			TargetType: parent.key.Type,
			TargetID:   parent.key.ID,
			CreatedAt:  gofakeit.DateRange(parent.createdAt, now),
		}
		if err := s.content.CreateComment(ctx, &c); err != nil {
			return target{}, err
		}
		res.Comments++

		t := target{key: models.TargetKey{Type: models.TargetComment, ID: c.ID}, owner: c.UserID, createdAt: c.CreatedAt}
		return t, s.emit(ctx, models.CommentCreated, t, c.UserID, c.CreatedAt, "", res)
	}

	for _, parent := range parents {
		n := 0
		if opts.MaxComments > 0 {
			n = s.rng.Intn(opts.MaxComments + 1)
		}
		for i := 0; i < n; i++ {
			c, err := create(parent)
			if err != nil {
				return nil, err
			}
			out = append(out, c)

			if s.rng.Intn(2) == 0 {
				reply, err := create(c)
				if err != nil {
					return nil, err
				}
				out = append(out, reply)
			}
		}
	}
	return out, nil
}

// engagementMix is the relative frequency of each reaction
var engagementMix = []struct {
	suffix string
	weight int
}{
	{"viewed", 60},
	{"liked", 20},
	{"shared", 8},
	{"disliked", 6},
	{"reported", 2},
}

// seedEngagement gives every user one session of feed impressions and
// reactions against random targets
func (s *Seeder) seedEngagement(ctx context.Context, opts Options, targets []target, now time.Time, res *Result) error {
	total := 0
	for _, m := range engagementMix {
		total += m.weight
	}

	for u := 1; u <= opts.Users; u++ {
		actor := int64(u)
		session := uuid.New().String()
		feedID := uuid.New().String()
		sessionStart := gofakeit.DateRange(now.AddDate(0, 0, -opts.Days), now)

		if err := s.emitSession(ctx, models.SessionStart, actor, session, sessionStart, res); err != nil {
			return err
		}

		for i := 0; i < opts.EventsPerUser; i++ {
			t := targets[s.rng.Intn(len(targets))]
			at := gofakeit.DateRange(t.createdAt, now)

			if t.key.Type == models.TargetQuestion && s.rng.Intn(3) == 0 {
				pos := i
				if err := s.record(ctx, &models.Event{
					EventType: models.FeedItemShown, TargetType: t.key.Type, TargetID: t.key.ID,
					ActorID: &actor, OwnerID: t.owner, SessionID: session, FeedID: feedID,
					Position: &pos, Source: "web", CreatedAt: at,
				}, res); err != nil {
					return err
				}
			}

			pick := s.rng.Intn(total)
			for _, m := range engagementMix {
				if pick < m.weight {
					typ := models.EventType(fmt.Sprintf("%s_%s", t.key.Type, m.suffix))
					if err := s.emit(ctx, typ, t, &actor, at, session, res); err != nil {
						return err
					}
					break
				}
				pick -= m.weight
			}
		}

		if err := s.emitSession(ctx, models.SessionEnd, actor, session, now, res); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) emit(ctx context.Context, typ models.EventType, t target, actor *int64, at time.Time, session string, res *Result) error {
	return s.record(ctx, &models.Event{
		EventType:   typ,
		TargetType:  t.key.Type,
		TargetID:    t.key.ID,
		ActorID:     actor,
		IsAnonymous: actor == nil,
		OwnerID:     t.owner,
		SessionID:   session,
		Source:      "web",
		CreatedAt:   at,
	}, res)
}

func (s *Seeder) emitSession(ctx context.Context, typ models.EventType, actor int64, session string, at time.Time, res *Result) error {
	return s.record(ctx, &models.Event{
		EventType:  typ,
		TargetType: "session",
		TargetID:   actor,
		ActorID:    &actor,
		SessionID:  session,
		CreatedAt:  at,
	}, res)
}

func (s *Seeder) record(ctx context.Context, e *models.Event, res *Result) error {
	if _, err := s.recorder.Record(ctx, e); err != nil {
		return err
	}
	res.Events++
	return nil
}

// user picks a random author id in [1, opts.Users]
func (s *Seeder) user(opts Options) *int64 {
	id := int64(s.rng.Intn(opts.Users) + 1)
	return &id
}
