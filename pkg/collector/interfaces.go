package collector

import (
	"context"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

// Source is a feed that yields overlapping snapshots of visible items.
// NextBatch may return items seen before or nothing at all; TriggerMore asks
// the feed to load further items (a scroll, the next page).
type Source interface {
	NextBatch(ctx context.Context) ([]models.RawItem, error)
	TriggerMore(ctx context.Context) error
	IsClosed() bool
}

// Store is the item set the loop merges into
type Store interface {
	Add(raw models.RawItem) (bool, error)
	Len() int
	Items() []models.Item
}

// Flusher persists the store after a batch that added items
type Flusher interface {
	Flush(ctx context.Context, items []models.Item) error
}

// FlushFunc adapts a function to Flusher
type FlushFunc func(ctx context.Context, items []models.Item) error

func (f FlushFunc) Flush(ctx context.Context, items []models.Item) error {
	return f(ctx, items)
}
