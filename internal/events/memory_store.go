package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/qaforum/engagement/internal/models"
)

// MemoryStore is an in-process event log. It is safe for concurrent use
// and is what tests and local tooling run against.
//
// The *Func fields override the default behaviour of a method, which lets
// tests inject store failures the same way the other mocks do.
type MemoryStore struct {
	mu     sync.RWMutex
	events []models.Event
	nextID uint64

	AppendFunc     func(ctx context.Context, e *models.Event) error
	FindFunc       func(ctx context.Context, q Query) ([]models.Event, error)
	CountFunc      func(ctx context.Context, f Filter) (int64, error)
	GroupCountFunc func(ctx context.Context, field Field, f Filter) ([]GroupCount, error)
}

// NewMemoryStore creates an empty in-memory log
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Len returns the number of stored events
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Append stores a copy of e and assigns its id
func (s *MemoryStore) Append(ctx context.Context, e *models.Event) error {
	if s.AppendFunc != nil {
		return s.AppendFunc(ctx, e)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	s.events = append(s.events, copyEvent(*e))
	return nil
}

// Find returns matching events ordered by created_at then id
func (s *MemoryStore) Find(ctx context.Context, q Query) ([]models.Event, error) {
	if s.FindFunc != nil {
		return s.FindFunc(ctx, q)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := q.Filter.compile()
	if err != nil {
		return nil, err
	}

	out := s.collect(c)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if q.Ascending {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if q.Ascending {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	if q.Limit > 0 {
		start := q.Offset
		if start > len(out) {
			start = len(out)
		}
		end := start + q.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

// Count returns the number of matching events
func (s *MemoryStore) Count(ctx context.Context, f Filter) (int64, error) {
	if s.CountFunc != nil {
		return s.CountFunc(ctx, f)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c, err := f.compile()
	if err != nil {
		return 0, err
	}
	return int64(len(s.collect(c))), nil
}

// GroupCount counts matching events per distinct field value, largest
// groups first, ties in order of first appearance
func (s *MemoryStore) GroupCount(ctx context.Context, field Field, f Filter) ([]GroupCount, error) {
	if s.GroupCountFunc != nil {
		return s.GroupCountFunc(ctx, field, f)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := f.compile()
	if err != nil {
		return nil, err
	}

	index := make(map[interface{}]int)
	var out []GroupCount
	for _, e := range s.collect(c) {
		e := e
		v := field.Value(&e)
		i, ok := index[v]
		if !ok {
			i = len(out)
			index[v] = i
			out = append(out, GroupCount{Value: v})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

func (s *MemoryStore) collect(c compiled) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Event
	for i := range s.events {
		if c.matches(&s.events[i]) {
			out = append(out, copyEvent(s.events[i]))
		}
	}
	return out
}

// copyEvent detaches the metadata map so stored events stay immutable
func copyEvent(e models.Event) models.Event {
	if e.Metadata != nil {
		md := make(models.Metadata, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		e.Metadata = md
	}
	return e
}
