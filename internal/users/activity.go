// Package users rolls the event log up per actor: activity summaries,
// last-seen times and profile engagement scores.
package users

import (
	"context"
	"time"

	"github.com/qaforum/engagement/internal/engagement"
	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/events"
	"github.com/qaforum/engagement/internal/models"
)

// ActivitySummary tallies one user's actions within a window
type ActivitySummary struct {
	TotalEvents      int `json:"total_events"`
	QuestionsCreated int `json:"questions_created"`
	AnswersCreated   int `json:"answers_created"`
	CommentsCreated  int `json:"comments_created"`
	Likes            int `json:"likes"`
	Dislikes         int `json:"dislikes"`
	Reports          int `json:"reports"`
	Shares           int `json:"shares"`
}

// Contributions counts created questions, answers and comments
func (s ActivitySummary) Contributions() int {
	return s.QuestionsCreated + s.AnswersCreated + s.CommentsCreated
}

// Summarize tallies evs. Creation events are counted first, every other
// event goes through engagement.Classify.
func Summarize(evs []models.Event) ActivitySummary {
	var s ActivitySummary
	for i := range evs {
		s.TotalEvents++
		switch evs[i].EventType {
		case models.QuestionCreated:
			s.QuestionsCreated++
			continue
		case models.AnswerCreated:
			s.AnswersCreated++
			continue
		case models.CommentCreated:
			s.CommentsCreated++
			continue
		}

		switch engagement.Classify(evs[i].EventType) {
		case engagement.BucketLikes:
			s.Likes++
		case engagement.BucketDislikes:
			s.Dislikes++
		case engagement.BucketReports:
			s.Reports++
		case engagement.BucketShares:
			s.Shares++
		}
	}
	return s
}

// ActivityService answers questions about what a user has done
type ActivityService struct {
	reader *events.Reader
	now    func() time.Time
}

// NewActivityService creates an activity service. A nil now uses time.Now.
func NewActivityService(reader *events.Reader, now func() time.Time) *ActivityService {
	if now == nil {
		now = time.Now
	}
	return &ActivityService{reader: reader, now: now}
}

// GetUserEvents returns the events actored by userID, newest first. Empty
// bounds and target type are not applied.
func (s *ActivityService) GetUserEvents(ctx context.Context, userID int64, start, end *time.Time, targetType models.TargetType) ([]models.Event, error) {
	actor := userID
	return s.reader.GetEvents(ctx, events.Query{Filter: events.Filter{
		ActorID:    &actor,
		TargetType: targetType,
		StartDate:  start,
		EndDate:    end,
	}})
}

// GetUserActivitySummary tallies the user's events over the last lastDays
func (s *ActivityService) GetUserActivitySummary(ctx context.Context, userID int64, lastDays int) (ActivitySummary, error) {
	if lastDays < 0 {
		return ActivitySummary{}, apperrors.Validation("last_days", "must not be negative")
	}
	start := s.now().AddDate(0, 0, -lastDays)
	evs, err := s.GetUserEvents(ctx, userID, &start, nil, "")
	if err != nil {
		return ActivitySummary{}, err
	}
	return Summarize(evs), nil
}

// GetLastActive returns the time of the user's most recent event, or nil
// when the user has none
func (s *ActivityService) GetLastActive(ctx context.Context, userID int64) (*time.Time, error) {
	actor := userID
	evs, err := s.reader.GetEvents(ctx, events.Query{
		Filter: events.Filter{ActorID: &actor},
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(evs) == 0 {
		return nil, nil
	}
	last := evs[0].CreatedAt
	return &last, nil
}
