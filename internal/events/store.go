package events

import (
	"context"

	"github.com/qaforum/engagement/internal/models"
)

// Store is durable append-only storage for events. Implementations only
// ever insert; existing rows are never updated or deleted.
type Store interface {
	Append(ctx context.Context, e *models.Event) error
	Find(ctx context.Context, q Query) ([]models.Event, error)
	Count(ctx context.Context, f Filter) (int64, error)
	GroupCount(ctx context.Context, field Field, f Filter) ([]GroupCount, error)
}
