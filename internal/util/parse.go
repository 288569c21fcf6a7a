package util

import (
	"strconv"
	"strings"
	"time"

	apperrors "github.com/qaforum/engagement/internal/errors"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParseFloat parses a string to a float64, returning defaultValue if parsing fails
func ParseFloat(s string, defaultValue float64) float64 {
	if val, err := strconv.ParseFloat(s, 64); err == nil {
		return val
	}
	return defaultValue
}

// ParseBool parses a string to a bool, returning defaultValue if s is empty or invalid
func ParseBool(s string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(s); err == nil {
		return val
	}
	return defaultValue
}

// ParseID parses a required int64 identifier named field
func ParseID(field, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, apperrors.Validation(field, "must be an integer")
	}
	return id, nil
}

// ParseOptionalID parses an int64 identifier, returning nil when s is empty
func ParseOptionalID(field, s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	id, err := ParseID(field, s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ParseIDList parses a comma-separated list of ids. An empty string yields
// nil, so callers can tell "no restriction" from an explicit empty set.
func ParseIDList(field, s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := ParseID(field, p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseTime accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (UTC
// midnight). An empty string yields nil.
func ParseTime(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	return nil, apperrors.Validation(field, "must be an RFC 3339 timestamp or YYYY-MM-DD date")
}
