package persist

import (
	"context"
	"sync"

	"github.com/yuya-0906/investment-watchlist/internal/model"
)

// MemoryAdapter keeps the list in memory only. It is the fallback when no
// durable storage is available, and doubles as a controllable adapter for
// tests: Err makes every mutation fail, and the call counters record what
// the store asked for.
type MemoryAdapter struct {
	mu      sync.Mutex
	entries []model.WatchEntry

	Err      error
	Puts     int
	Removes  int
	Replaces int
}

func NewMemoryAdapter() *MemoryAdapter { return &MemoryAdapter{} }

func (a *MemoryAdapter) Load(_ context.Context) ([]model.WatchEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	if len(a.entries) == 0 {
		return nil, nil
	}
	out := make([]model.WatchEntry, len(a.entries))
	copy(out, a.entries)
	return out, nil
}

func (a *MemoryAdapter) Put(_ context.Context, e model.WatchEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Puts++
	if a.Err != nil {
		return a.Err
	}
	for i := range a.entries {
		if a.entries[i].ID == e.ID {
			a.entries[i] = e
			return nil
		}
	}
	a.entries = append(a.entries, e)
	return nil
}

func (a *MemoryAdapter) Remove(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Removes++
	if a.Err != nil {
		return a.Err
	}
	kept := a.entries[:0]
	for _, e := range a.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	a.entries = kept
	return nil
}

func (a *MemoryAdapter) ReplaceAll(_ context.Context, entries []model.WatchEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Replaces++
	if a.Err != nil {
		return a.Err
	}
	a.entries = make([]model.WatchEntry, len(entries))
	copy(a.entries, entries)
	return nil
}

func (a *MemoryAdapter) Subscribe(_ func([]model.WatchEntry)) func() {
	return func() {}
}

func (a *MemoryAdapter) Close() error { return nil }
