package models

import (
	"time"

	"gorm.io/gorm"
)

// Question, Answer and Comment are owned by the content collaborators.
// The engagement core only reads them to build candidate sets and feeds.

// Question is a top-level content unit
type Question struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string         `gorm:"type:text" json:"title"`
	Content   string         `gorm:"type:text" json:"content"`
	UserID    *int64         `gorm:"index" json:"user_id,omitempty"` // nil for anonymous posts
	Topic     string         `gorm:"type:varchar(64);index" json:"topic,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Question) TableName() string {
	return "questions"
}

// Answer belongs to a question
type Answer struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID int64          `gorm:"not null;index" json:"question_id"`
	Content    string         `gorm:"type:text" json:"content"`
	UserID     *int64         `gorm:"index" json:"user_id,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Answer) TableName() string {
	return "answers"
}

// Comment points at its parent through (TargetType, TargetID); the parent
// may be a question, an answer or another comment.
type Comment struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Content    string         `gorm:"type:text" json:"content"`
	UserID     *int64         `gorm:"index" json:"user_id,omitempty"`
	Anonymous  bool           `gorm:"default:false" json:"anonymous"`
	TargetType TargetType     `gorm:"type:varchar(32);index:idx_comments_parent,priority:1" json:"target_type"`
	TargetID   int64          `gorm:"index:idx_comments_parent,priority:2" json:"target_id"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Comment) TableName() string {
	return "comments"
}
