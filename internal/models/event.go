package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventType is one entry of the fixed event taxonomy
type EventType string

const (
	// Content actions
	QuestionCreated EventType = "question_created"
	QuestionEdited  EventType = "question_edited"
	QuestionDeleted EventType = "question_deleted"
	AnswerCreated   EventType = "answer_created"
	AnswerEdited    EventType = "answer_edited"
	AnswerDeleted   EventType = "answer_deleted"
	CommentCreated  EventType = "comment_created"
	CommentEdited   EventType = "comment_edited"
	CommentDeleted  EventType = "comment_deleted"

	// Engagement
	QuestionViewed   EventType = "question_viewed"
	AnswerViewed     EventType = "answer_viewed"
	CommentViewed    EventType = "comment_viewed"
	QuestionLiked    EventType = "question_liked"
	AnswerLiked      EventType = "answer_liked"
	CommentLiked     EventType = "comment_liked"
	QuestionDisliked EventType = "question_disliked"
	AnswerDisliked   EventType = "answer_disliked"
	CommentDisliked  EventType = "comment_disliked"
	QuestionReported EventType = "question_reported"
	AnswerReported   EventType = "answer_reported"
	CommentReported  EventType = "comment_reported"
	QuestionShared   EventType = "question_shared"
	AnswerShared     EventType = "answer_shared"
	CommentShared    EventType = "comment_shared"

	// Search
	SearchPerformed EventType = "search_performed"
	SearchClick     EventType = "search_click"

	// Navigation
	FeedItemShown  EventType = "feed_item_shown"
	FeedItemOpened EventType = "feed_item_opened"

	// Social
	UserFollowed    EventType = "user_followed"
	UserUnfollowed  EventType = "user_unfollowed"
	TopicFollowed   EventType = "topic_followed"
	TopicUnfollowed EventType = "topic_unfollowed"

	// Session
	Login        EventType = "login"
	Logout       EventType = "logout"
	SessionStart EventType = "session_start"
	SessionEnd   EventType = "session_end"
)

// AllEventTypes lists the whole taxonomy in declaration order
var AllEventTypes = []EventType{
	QuestionCreated, QuestionEdited, QuestionDeleted,
	AnswerCreated, AnswerEdited, AnswerDeleted,
	CommentCreated, CommentEdited, CommentDeleted,
	QuestionViewed, AnswerViewed, CommentViewed,
	QuestionLiked, AnswerLiked, CommentLiked,
	QuestionDisliked, AnswerDisliked, CommentDisliked,
	QuestionReported, AnswerReported, CommentReported,
	QuestionShared, AnswerShared, CommentShared,
	SearchPerformed, SearchClick,
	FeedItemShown, FeedItemOpened,
	UserFollowed, UserUnfollowed, TopicFollowed, TopicUnfollowed,
	Login, Logout, SessionStart, SessionEnd,
}

var knownEventTypes = func() map[EventType]bool {
	m := make(map[EventType]bool, len(AllEventTypes))
	for _, t := range AllEventTypes {
		m[t] = true
	}
	return m
}()

// Known reports whether the type belongs to the fixed taxonomy.
// Unknown types are still stored; they just carry no default weight.
func (t EventType) Known() bool {
	return knownEventTypes[t]
}

// HasSuffix is a convenience for "<kind>_liked" style checks
func (t EventType) HasSuffix(suffix string) bool {
	return strings.HasSuffix(string(t), suffix)
}

// TargetType identifies the kind of content unit an event refers to
type TargetType string

const (
	TargetQuestion TargetType = "question"
	TargetAnswer   TargetType = "answer"
	TargetComment  TargetType = "comment"
)

// KnownTargetTypes are the content kinds trending and feeds understand
var KnownTargetTypes = []TargetType{TargetQuestion, TargetAnswer, TargetComment}

// Known reports whether t is one of question, answer or comment
func (t TargetType) Known() bool {
	switch t {
	case TargetQuestion, TargetAnswer, TargetComment:
		return true
	}
	return false
}

// TargetKey is the aggregation key: a question:5 is never an answer:5.
// It encodes as "question:5" in JSON, including as a map key.
type TargetKey struct {
	Type TargetType
	ID   int64
}

func (k TargetKey) String() string {
	return fmt.Sprintf("%s:%d", k.Type, k.ID)
}

// ParseTargetKey parses the "type:id" form produced by String
func ParseTargetKey(s string) (TargetKey, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return TargetKey{}, fmt.Errorf("invalid target key %q", s)
	}
	id, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return TargetKey{}, fmt.Errorf("invalid target key %q: %w", s, err)
	}
	return TargetKey{Type: TargetType(s[:i]), ID: id}, nil
}

func (k TargetKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TargetKey) UnmarshalText(text []byte) error {
	parsed, err := ParseTargetKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Metadata is the opaque key/value bag attached to an event
type Metadata map[string]interface{}

// Event is an immutable fact: one actor action against one target at one time.
// Rows are only ever inserted; corrections are new events.
type Event struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// Actor
	ActorID     *int64 `gorm:"index:idx_events_actor_created,priority:1" json:"actor_id,omitempty"`
	ActorRole   string `gorm:"type:varchar(32)" json:"actor_role,omitempty"` // user | professional | admin
	IsAnonymous bool   `gorm:"default:false" json:"is_anonymous"`

	// Target
	EventType  EventType  `gorm:"type:varchar(64);not null;index" json:"event_type"`
	TargetType TargetType `gorm:"type:varchar(32);not null;index:idx_events_target_created,priority:1" json:"target_type"`
	TargetID   int64      `gorm:"not null;index:idx_events_target_created,priority:2" json:"target_id"`

	// Owner of the content, denormalized for "who benefits" queries
	OwnerID   *int64 `gorm:"index" json:"owner_id,omitempty"`
	OwnerType string `gorm:"type:varchar(32)" json:"owner_type,omitempty"`

	// Context, carried through for analytics slicing
	SessionID  string `gorm:"type:varchar(128);index" json:"session_id,omitempty"`
	RequestID  string `gorm:"type:varchar(128);index" json:"request_id,omitempty"`
	FeedID     string `gorm:"type:varchar(128);index" json:"feed_id,omitempty"`
	Position   *int   `json:"position,omitempty"`
	Source     string `gorm:"type:varchar(32)" json:"source,omitempty"` // web | ios | android
	Referrer   string `gorm:"type:text" json:"referrer,omitempty"`
	AppVersion string `gorm:"type:varchar(32)" json:"app_version,omitempty"`

	// Telemetry
	IPAddress string   `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent string   `gorm:"type:text" json:"user_agent,omitempty"`
	UserGeo   string   `gorm:"type:varchar(64)" json:"user_geo,omitempty"`
	LatencyMS *float64 `json:"latency_ms,omitempty"`

	Metadata Metadata `gorm:"type:text;serializer:json" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;index;index:idx_events_target_created,priority:3;index:idx_events_actor_created,priority:2" json:"created_at"`
}

// TableName specifies the table name
func (Event) TableName() string {
	return "events"
}

// Target returns the aggregation key of the event
func (e *Event) Target() TargetKey {
	return TargetKey{Type: e.TargetType, ID: e.TargetID}
}
