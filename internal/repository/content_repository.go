package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// filterColumns whitelists the columns callers may filter each kind on
var filterColumns = map[models.TargetType]map[string]bool{
	models.TargetQuestion: {"user_id": true, "topic": true},
	models.TargetAnswer:   {"user_id": true, "question_id": true},
	models.TargetComment:  {"user_id": true, "target_type": true, "target_id": true, "anonymous": true},
}

// FilterColumns lists the filterable columns of targetType, sorted
func FilterColumns(targetType models.TargetType) []string {
	cols := make([]string, 0, len(filterColumns[targetType]))
	for c := range filterColumns[targetType] {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// ContentRepository reads the question, answer and comment tables owned
// by the content services. Soft-deleted rows are never returned.
type ContentRepository interface {
	// Candidate sets
	RecentIDs(ctx context.Context, targetType models.TargetType, since time.Time, filters map[string]interface{}) ([]int64, error)
	RecentQuestions(ctx context.Context, since time.Time, limit int) ([]models.Question, error)

	// Children
	AnswerIDs(ctx context.Context, questionID int64) ([]int64, error)
	ChildComments(ctx context.Context, parents []models.TargetKey) ([]models.Comment, error)

	// Writes, used by seeding and tests
	CreateQuestion(ctx context.Context, q *models.Question) error
	CreateAnswer(ctx context.Context, a *models.Answer) error
	CreateComment(ctx context.Context, c *models.Comment) error
}

// contentRepository implements ContentRepository on gorm
type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func modelFor(targetType models.TargetType) (interface{}, error) {
	switch targetType {
	case models.TargetQuestion:
		return &models.Question{}, nil
	case models.TargetAnswer:
		return &models.Answer{}, nil
	case models.TargetComment:
		return &models.Comment{}, nil
	}
	return nil, apperrors.Validation("target_type", fmt.Sprintf("unknown target type %q", targetType))
}

// RecentIDs returns ids of targetType created at or after since and
// matching every filter. Filtering on a column outside the kind's
// whitelist is a configuration error.
func (r *contentRepository) RecentIDs(ctx context.Context, targetType models.TargetType, since time.Time, filters map[string]interface{}) ([]int64, error) {
	model, err := modelFor(targetType)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(model).Where("created_at >= ?", since.UTC())

	cols := make([]string, 0, len(filters))
	for col := range filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if !filterColumns[targetType][col] {
			return nil, apperrors.Configuration("filters."+col,
				fmt.Sprintf("%s cannot be filtered on %q", targetType, col))
		}
		query = query.Where(col+" = ?", filters[col])
	}

	var ids []int64
	if err := query.Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, apperrors.FromDependency("content store", "recent_ids", err)
	}
	return ids, nil
}

// RecentQuestions returns questions created at or after since, newest
// first. A non-positive limit returns all of them.
func (r *contentRepository) RecentQuestions(ctx context.Context, since time.Time, limit int) ([]models.Question, error) {
	query := r.db.WithContext(ctx).
		Where("created_at >= ?", since.UTC()).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var questions []models.Question
	if err := query.Find(&questions).Error; err != nil {
		return nil, apperrors.FromDependency("content store", "recent_questions", err)
	}
	return questions, nil
}

// AnswerIDs returns the ids of a question's answers, oldest first
func (r *contentRepository) AnswerIDs(ctx context.Context, questionID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("question_id = ?", questionID).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, apperrors.FromDependency("content store", "answer_ids", err)
	}
	return ids, nil
}

// ChildComments returns every comment whose parent is one of parents,
// ordered by id
func (r *contentRepository) ChildComments(ctx context.Context, parents []models.TargetKey) ([]models.Comment, error) {
	if len(parents) == 0 {
		return []models.Comment{}, nil
	}

	byType := make(map[models.TargetType][]int64)
	for _, p := range parents {
		byType[p.Type] = append(byType[p.Type], p.ID)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	args := make([]interface{}, 0, 2*len(types))
	for _, t := range types {
		parts = append(parts, "(target_type = ? AND target_id IN ?)")
		args = append(args, t, byType[models.TargetType(t)])
	}

	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where(strings.Join(parts, " OR "), args...).
		Order("id").
		Find(&comments).Error
	if err != nil {
		return nil, apperrors.FromDependency("content store", "child_comments", err)
	}
	return comments, nil
}

// CreateQuestion inserts a question
func (r *contentRepository) CreateQuestion(ctx context.Context, q *models.Question) error {
	if q == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(q).Error
}

// CreateAnswer inserts an answer
func (r *contentRepository) CreateAnswer(ctx context.Context, a *models.Answer) error {
	if a == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(a).Error
}

// CreateComment inserts a comment
func (r *contentRepository) CreateComment(ctx context.Context, c *models.Comment) error {
	if c == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(c).Error
}
