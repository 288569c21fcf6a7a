package events

import (
	"context"
	"time"

	"github.com/qaforum/engagement/internal/models"
	"gorm.io/gorm"
)

// GormStore keeps the event log in a SQL database (PostgreSQL in
// production, SQLite in tests)
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store over an open gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Append inserts a new event; the database assigns the id
func (s *GormStore) Append(ctx context.Context, e *models.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Microsecond)
	return s.db.WithContext(ctx).Create(e).Error
}

// Find returns matching events, newest first unless q.Ascending
func (s *GormStore) Find(ctx context.Context, q Query) ([]models.Event, error) {
	c, err := q.Filter.compile()
	if err != nil {
		return nil, err
	}

	tx := s.scoped(ctx, c)
	if q.Ascending {
		tx = tx.Order("created_at ASC").Order("id ASC")
	} else {
		tx = tx.Order("created_at DESC").Order("id DESC")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}

	var out []models.Event
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of matching events
func (s *GormStore) Count(ctx context.Context, f Filter) (int64, error) {
	c, err := f.compile()
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.scoped(ctx, c).Count(&n).Error
	return n, err
}

// GroupCount counts matching events per distinct value of field,
// largest groups first
func (s *GormStore) GroupCount(ctx context.Context, field Field, f Filter) ([]GroupCount, error) {
	c, err := f.compile()
	if err != nil {
		return nil, err
	}

	column := field.Column()
	rows, err := s.scoped(ctx, c).
		Select(column + " AS value, COUNT(*) AS count").
		Group(column).
		Order("count DESC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupCount
	for rows.Next() {
		dest, value := field.scanTarget()
		var n int64
		if err := rows.Scan(dest, &n); err != nil {
			return nil, err
		}
		out = append(out, GroupCount{Value: value(), Count: n})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []GroupCount{}
	}
	return out, nil
}

func (s *GormStore) scoped(ctx context.Context, c compiled) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&models.Event{})
	for _, cond := range c.conds {
		tx = tx.Where(cond.field.Column()+" = ?", cond.value)
	}
	if c.hasIDs {
		tx = tx.Where("target_id IN ?", c.targetIDs)
	}
	if c.start != nil {
		tx = tx.Where("created_at >= ?", *c.start)
	}
	if c.end != nil {
		tx = tx.Where("created_at <= ?", *c.end)
	}
	return tx
}
