package events

import (
	"sort"
	"time"

	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/models"
)

// Filter selects events. Zero-valued fields are not applied; everything
// supplied is ANDed together. Date bounds are inclusive.
type Filter struct {
	TargetType models.TargetType
	TargetID   *int64
	// TargetIDs restricts to a set of targets. A nil slice applies no
	// restriction, an empty non-nil slice matches nothing.
	TargetIDs []int64
	ActorID   *int64
	SessionID string
	FeedID    string
	EventType models.EventType
	StartDate *time.Time
	EndDate   *time.Time

	// Attrs holds extra equality predicates keyed by Field name
	Attrs map[string]interface{}
}

// Query is a filtered, ordered, paginated read of the log
type Query struct {
	Filter
	// Limit <= 0 returns every matching event. Callers are responsible
	// for bounding unbounded reads.
	Limit int
	// Offset is only applied together with a positive Limit
	Offset int
	// Ascending flips the default newest-first order
	Ascending bool
}

// GroupCount is one row of a grouped count
type GroupCount struct {
	Value interface{} `json:"value"`
	Count int64       `json:"count"`
}

type condition struct {
	field Field
	value interface{}
}

// compiled is a validated filter ready to be applied by a store
type compiled struct {
	conds     []condition
	targetIDs []int64
	hasIDs    bool
	start     *time.Time
	end       *time.Time
}

// Validate checks every attribute key against the permitted field set
func (f Filter) Validate() error {
	_, err := f.compile()
	return err
}

func (f Filter) compile() (compiled, error) {
	var c compiled

	if f.TargetType != "" {
		c.conds = append(c.conds, condition{FieldTargetType, string(f.TargetType)})
	}
	if f.TargetID != nil {
		c.conds = append(c.conds, condition{FieldTargetID, *f.TargetID})
	}
	if f.ActorID != nil {
		c.conds = append(c.conds, condition{FieldActorID, *f.ActorID})
	}
	if f.SessionID != "" {
		c.conds = append(c.conds, condition{FieldSessionID, f.SessionID})
	}
	if f.FeedID != "" {
		c.conds = append(c.conds, condition{FieldFeedID, f.FeedID})
	}
	if f.EventType != "" {
		c.conds = append(c.conds, condition{FieldEventType, string(f.EventType)})
	}

	// Sorted so the generated SQL is stable
	keys := make([]string, 0, len(f.Attrs))
	for k := range f.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		field, err := ParseField(k)
		if err != nil {
			return compiled{}, err
		}
		v, err := field.normalize(f.Attrs[k])
		if err != nil {
			return compiled{}, err
		}
		c.conds = append(c.conds, condition{field, v})
	}

	if f.TargetIDs != nil {
		c.hasIDs = true
		c.targetIDs = f.TargetIDs
	}

	if f.StartDate != nil {
		s := f.StartDate.UTC()
		c.start = &s
	}
	if f.EndDate != nil {
		e := f.EndDate.UTC()
		c.end = &e
	}
	if c.start != nil && c.end != nil && c.end.Before(*c.start) {
		return compiled{}, apperrors.Validation("end_date", "end date is before start date")
	}

	return c, nil
}

// matches evaluates the compiled filter against one event in memory
func (c compiled) matches(e *models.Event) bool {
	for _, cond := range c.conds {
		if cond.field.Value(e) != cond.value {
			return false
		}
	}
	if c.hasIDs {
		found := false
		for _, id := range c.targetIDs {
			if id == e.TargetID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.start != nil && e.CreatedAt.Before(*c.start) {
		return false
	}
	if c.end != nil && e.CreatedAt.After(*c.end) {
		return false
	}
	return true
}
