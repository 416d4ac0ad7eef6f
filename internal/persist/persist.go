package persist

import (
	"context"

	"github.com/yuya-0906/investment-watchlist/internal/model"
)

// Adapter is the persistence contract the store drives. It follows the
// per-identity document-store shape; the file adapter implements the same
// surface over a whole-list JSON document.
//
// Subscribe registers a handler that receives a full list snapshot after
// every durable change, ordered by AddedAt descending. Adapters without
// live push never call the handler; the returned cancel is always safe to
// call once.
type Adapter interface {
	Load(ctx context.Context) ([]model.WatchEntry, error)
	Put(ctx context.Context, e model.WatchEntry) error
	Remove(ctx context.Context, id string) error
	ReplaceAll(ctx context.Context, entries []model.WatchEntry) error
	Subscribe(onChange func([]model.WatchEntry)) (cancel func())
	Close() error
}
