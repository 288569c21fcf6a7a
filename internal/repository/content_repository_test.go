package repository

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Question{}, &models.Answer{}, &models.Comment{}))
	return db
}

func int64Ptr(v int64) *int64 { return &v }

type ContentRepositorySuite struct {
	suite.Suite
	db   *gorm.DB
	repo ContentRepository
	now  time.Time
}

func (s *ContentRepositorySuite) SetupTest() {
	s.db = setupTestDB(s.T())
	s.repo = NewContentRepository(s.db)
	s.now = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	questions := []models.Question{
		{Title: "old", UserID: int64Ptr(1), Topic: "go", CreatedAt: s.now.AddDate(0, 0, -40)},
		{Title: "recent go", UserID: int64Ptr(1), Topic: "go", CreatedAt: s.now.AddDate(0, 0, -2)},
		{Title: "recent rust", UserID: int64Ptr(2), Topic: "rust", CreatedAt: s.now.AddDate(0, 0, -1)},
		{Title: "deleted", UserID: int64Ptr(2), Topic: "go", CreatedAt: s.now.AddDate(0, 0, -1)},
	}
	for i := range questions {
		s.Require().NoError(s.repo.CreateQuestion(ctx, &questions[i]))
	}
	s.Require().NoError(s.db.Delete(&questions[3]).Error)

	for _, a := range []models.Answer{
		{QuestionID: 2, Content: "a1", CreatedAt: s.now},
		{QuestionID: 2, Content: "a2", CreatedAt: s.now},
		{QuestionID: 3, Content: "a3", CreatedAt: s.now},
	} {
		a := a
		s.Require().NoError(s.repo.CreateAnswer(ctx, &a))
	}

	for _, c := range []models.Comment{
		{TargetType: models.TargetQuestion, TargetID: 2, Content: "c1", CreatedAt: s.now},
		{TargetType: models.TargetAnswer, TargetID: 1, Content: "c2", CreatedAt: s.now},
		{TargetType: models.TargetComment, TargetID: 1, Content: "c3", CreatedAt: s.now},
		{TargetType: models.TargetAnswer, TargetID: 2, Content: "c4", CreatedAt: s.now},
	} {
		c := c
		s.Require().NoError(s.repo.CreateComment(ctx, &c))
	}
}

func (s *ContentRepositorySuite) TestRecentIDsExcludesOldAndDeleted() {
	ids, err := s.repo.RecentIDs(context.Background(), models.TargetQuestion, s.now.AddDate(0, 0, -7), nil)
	s.Require().NoError(err)
	s.Equal([]int64{2, 3}, ids)
}

func (s *ContentRepositorySuite) TestRecentIDsFilters() {
	ids, err := s.repo.RecentIDs(context.Background(), models.TargetQuestion, s.now.AddDate(0, 0, -7),
		map[string]interface{}{"topic": "rust"})
	s.Require().NoError(err)
	s.Equal([]int64{3}, ids)

	ids, err = s.repo.RecentIDs(context.Background(), models.TargetAnswer, s.now.AddDate(0, 0, -7),
		map[string]interface{}{"question_id": 2})
	s.Require().NoError(err)
	s.Equal([]int64{1, 2}, ids)
}

func (s *ContentRepositorySuite) TestRecentIDsRejectsUnknownColumn() {
	_, err := s.repo.RecentIDs(context.Background(), models.TargetQuestion, s.now, map[string]interface{}{"title": "x"})
	s.True(apperrors.IsCode(err, apperrors.CodeConfiguration))

	_, err = s.repo.RecentIDs(context.Background(), models.TargetType("widget"), s.now, nil)
	s.True(apperrors.IsCode(err, apperrors.CodeValidation))
}

func (s *ContentRepositorySuite) TestRecentQuestionsNewestFirst() {
	qs, err := s.repo.RecentQuestions(context.Background(), s.now.AddDate(0, 0, -30), 0)
	s.Require().NoError(err)
	s.Require().Len(qs, 2)
	s.Equal("recent rust", qs[0].Title)
	s.Equal("recent go", qs[1].Title)

	qs, err = s.repo.RecentQuestions(context.Background(), s.now.AddDate(0, 0, -30), 1)
	s.Require().NoError(err)
	s.Len(qs, 1)
}

func (s *ContentRepositorySuite) TestAnswerIDs() {
	ids, err := s.repo.AnswerIDs(context.Background(), 2)
	s.Require().NoError(err)
	s.Equal([]int64{1, 2}, ids)

	ids, err = s.repo.AnswerIDs(context.Background(), 99)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *ContentRepositorySuite) TestChildComments() {
	comments, err := s.repo.ChildComments(context.Background(), []models.TargetKey{
		{Type: models.TargetQuestion, ID: 2},
		{Type: models.TargetAnswer, ID: 1},
	})
	s.Require().NoError(err)
	s.Require().Len(comments, 2)
	s.Equal("c1", comments[0].Content)
	s.Equal("c2", comments[1].Content)

	empty, err := s.repo.ChildComments(context.Background(), nil)
	s.Require().NoError(err)
	s.Empty(empty)
}

func TestContentRepository(t *testing.T) {
	suite.Run(t, new(ContentRepositorySuite))
}

func TestCreateRejectsNil(t *testing.T) {
	repo := NewContentRepository(setupTestDB(t))
	assert.ErrorIs(t, repo.CreateQuestion(context.Background(), nil), ErrInvalidInput)
	assert.ErrorIs(t, repo.CreateAnswer(context.Background(), nil), ErrInvalidInput)
	assert.ErrorIs(t, repo.CreateComment(context.Background(), nil), ErrInvalidInput)
}

func TestFilterColumns(t *testing.T) {
	assert.Equal(t, []string{"topic", "user_id"}, FilterColumns(models.TargetQuestion))
	assert.Empty(t, FilterColumns(models.TargetType("widget")))
}
