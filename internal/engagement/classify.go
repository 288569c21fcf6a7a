// Package engagement turns raw events into per-target engagement metrics
// and time-decayed scores.
package engagement

import (
	"strings"

	"github.com/qaforum/engagement/internal/models"
)

// Bucket is the engagement category an event type counts toward
type Bucket string

const (
	BucketNone     Bucket = "none"
	BucketLikes    Bucket = "likes"
	BucketDislikes Bucket = "dislikes"
	BucketReports  Bucket = "reports"
	BucketShares   Bucket = "shares"
	BucketComments Bucket = "comments"
)

var bucketTable = []struct {
	bucket Bucket
	types  []models.EventType
}{
	{BucketLikes, []models.EventType{models.QuestionLiked, models.AnswerLiked, models.CommentLiked}},
	{BucketDislikes, []models.EventType{models.QuestionDisliked, models.AnswerDisliked, models.CommentDisliked}},
	{BucketReports, []models.EventType{models.QuestionReported, models.AnswerReported, models.CommentReported}},
	{BucketShares, []models.EventType{models.QuestionShared, models.AnswerShared, models.CommentShared}},
}

// Classify maps an event type to exactly one bucket. The table is checked
// in order, so comment_liked is a like and not a comment.
func Classify(t models.EventType) Bucket {
	for _, row := range bucketTable {
		for _, candidate := range row.types {
			if t == candidate {
				return row.bucket
			}
		}
	}
	if strings.HasPrefix(string(t), "comment_") {
		return BucketComments
	}
	return BucketNone
}
