package events

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/models"
)

// Field is a permitted filter / group-by key of the event log.
// Anything outside this enumeration is rejected at the boundary.
type Field string

const (
	FieldActorID     Field = "actor_id"
	FieldActorRole   Field = "actor_role"
	FieldIsAnonymous Field = "is_anonymous"
	FieldEventType   Field = "event_type"
	FieldTargetType  Field = "target_type"
	FieldTargetID    Field = "target_id"
	FieldOwnerID     Field = "owner_id"
	FieldOwnerType   Field = "owner_type"
	FieldSessionID   Field = "session_id"
	FieldRequestID   Field = "request_id"
	FieldFeedID      Field = "feed_id"
	FieldPosition    Field = "position"
	FieldSource      Field = "source"
	FieldReferrer    Field = "referrer"
	FieldAppVersion  Field = "app_version"
	FieldUserGeo     Field = "user_geo"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindBool
)

type fieldDef struct {
	column string
	kind   fieldKind
	get    func(e *models.Event) interface{}
}

func optionalInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

var fields = map[Field]fieldDef{
	FieldActorID:     {"actor_id", kindInt, func(e *models.Event) interface{} { return optionalInt64(e.ActorID) }},
	FieldActorRole:   {"actor_role", kindString, func(e *models.Event) interface{} { return e.ActorRole }},
	FieldIsAnonymous: {"is_anonymous", kindBool, func(e *models.Event) interface{} { return e.IsAnonymous }},
	FieldEventType:   {"event_type", kindString, func(e *models.Event) interface{} { return string(e.EventType) }},
	FieldTargetType:  {"target_type", kindString, func(e *models.Event) interface{} { return string(e.TargetType) }},
	FieldTargetID:    {"target_id", kindInt, func(e *models.Event) interface{} { return e.TargetID }},
	FieldOwnerID:     {"owner_id", kindInt, func(e *models.Event) interface{} { return optionalInt64(e.OwnerID) }},
	FieldOwnerType:   {"owner_type", kindString, func(e *models.Event) interface{} { return e.OwnerType }},
	FieldSessionID:   {"session_id", kindString, func(e *models.Event) interface{} { return e.SessionID }},
	FieldRequestID:   {"request_id", kindString, func(e *models.Event) interface{} { return e.RequestID }},
	FieldFeedID:      {"feed_id", kindString, func(e *models.Event) interface{} { return e.FeedID }},
	FieldPosition: {"position", kindInt, func(e *models.Event) interface{} {
		if e.Position == nil {
			return nil
		}
		return int64(*e.Position)
	}},
	FieldSource:     {"source", kindString, func(e *models.Event) interface{} { return e.Source }},
	FieldReferrer:   {"referrer", kindString, func(e *models.Event) interface{} { return e.Referrer }},
	FieldAppVersion: {"app_version", kindString, func(e *models.Event) interface{} { return e.AppVersion }},
	FieldUserGeo:    {"user_geo", kindString, func(e *models.Event) interface{} { return e.UserGeo }},
}

// Fields returns the permitted keys, sorted
func Fields() []Field {
	out := make([]Field, 0, len(fields))
	for f := range fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseField resolves a raw field name. Unknown names are a configuration
// error rather than a silently empty result.
func ParseField(name string) (Field, error) {
	f := Field(strings.TrimSpace(name))
	if _, ok := fields[f]; !ok {
		return "", apperrors.Configuration(name, fmt.Sprintf("unknown event field %q", name))
	}
	return f, nil
}

// Column returns the storage column backing the field
func (f Field) Column() string {
	return fields[f].column
}

// Value reads the field from an event
func (f Field) Value(e *models.Event) interface{} {
	return fields[f].get(e)
}

// scanTarget returns a typed destination for one grouped column value
// and a function reading it back as the same Go type Value produces.
// NULL reads back as nil.
func (f Field) scanTarget() (interface{}, func() interface{}) {
	switch fields[f].kind {
	case kindInt:
		var v sql.NullInt64
		return &v, func() interface{} {
			if !v.Valid {
				return nil
			}
			return v.Int64
		}
	case kindBool:
		var v sql.NullBool
		return &v, func() interface{} {
			if !v.Valid {
				return nil
			}
			return v.Bool
		}
	default:
		var v sql.NullString
		return &v, func() interface{} {
			if !v.Valid {
				return nil
			}
			return v.String
		}
	}
}

// normalize coerces a caller-supplied filter value to the field's type
func (f Field) normalize(v interface{}) (interface{}, error) {
	def := fields[f]
	bad := apperrors.Validation(string(f), fmt.Sprintf("cannot use %v (%T) as %s value", v, v, f))

	switch def.kind {
	case kindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case uint64:
			return int64(n), nil
		case float64:
			if n != float64(int64(n)) {
				return nil, bad
			}
			return int64(n), nil
		case string:
			parsed, err := strconv.ParseInt(n, 10, 64)
			if err != nil {
				return nil, bad
			}
			return parsed, nil
		}
	case kindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, bad
			}
			return parsed, nil
		}
	default:
		switch s := v.(type) {
		case string:
			return s, nil
		case fmt.Stringer:
			return s.String(), nil
		case models.EventType:
			return string(s), nil
		case models.TargetType:
			return string(s), nil
		}
	}
	return nil, bad
}
