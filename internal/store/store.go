// Package store owns the in-memory watchlist for the active session: it is
// the single mutation entry point, derives the filtered/sorted views, and
// recomputes buy-trigger notifications after every change.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yuya-0906/investment-watchlist/internal/model"
	"github.com/yuya-0906/investment-watchlist/internal/persist"
)

var (
	// ErrValidation marks input rejected before any state change.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a mutation targeting an unknown entry id.
	ErrNotFound = errors.New("entry not found")
)

// Store holds the authoritative list for the current session. Mutations are
// applied optimistically in memory and sent to the bound adapter; when the
// adapter pushes snapshots, the last snapshot wins.
type Store struct {
	mu            sync.Mutex
	adapter       persist.Adapter
	unsubscribe   func()
	entries       []model.WatchEntry
	notifications []model.Notification

	now   func() time.Time
	newID func() string
}

// New creates an unbound store.
func New() *Store {
	return &Store{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Bind attaches a persistence adapter: loads the durable list (falling back
// to seed when the adapter has nothing), subscribes to snapshot pushes, and
// recomputes notifications. Call Unbind first when rebinding.
func (s *Store) Bind(ctx context.Context, adapter persist.Adapter, seed []model.WatchEntry) error {
	entries, err := adapter.Load(ctx)
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}
	if entries == nil && len(seed) > 0 {
		entries = cloneList(seed)
		if err := adapter.ReplaceAll(ctx, entries); err != nil {
			return fmt.Errorf("seed watchlist: %w", err)
		}
	}

	s.mu.Lock()
	s.adapter = adapter
	s.entries = entries
	s.recompute()
	s.mu.Unlock()

	s.unsubscribe = adapter.Subscribe(s.applySnapshot)
	return nil
}

// Unbind detaches the adapter and clears the in-memory list, the "no
// principal" transition.
func (s *Store) Unbind() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapter = nil
	s.entries = nil
	s.notifications = nil
}

// applySnapshot installs a pushed list as the new truth. The snapshot is
// cloned on install: the adapter may hand the same slice to every
// subscriber, and later in-place updates must not leak across them.
func (s *Store) applySnapshot(entries []model.WatchEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = cloneList(entries)
	s.recompute()
}

// Create validates and appends a new entry. The name must be non-empty after
// trimming; prices, when present, must be finite and non-negative. Nothing is
// persisted on a validation failure.
func (s *Store) Create(ctx context.Context, draft model.NewEntry) (model.WatchEntry, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return model.WatchEntry{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := checkPrice(draft.TargetPrice); err != nil {
		return model.WatchEntry{}, err
	}
	if err := checkPrice(draft.CurrentPrice); err != nil {
		return model.WatchEntry{}, err
	}
	priority := draft.Priority
	if !priority.Known() {
		priority = model.PriorityMedium
	}

	s.mu.Lock()
	now := s.now()
	entry := model.WatchEntry{
		ID:           s.newID(),
		Name:         name,
		Code:         strings.TrimSpace(draft.Code),
		TargetPrice:  clonePrice(draft.TargetPrice),
		CurrentPrice: clonePrice(draft.CurrentPrice),
		Memo:         strings.TrimSpace(draft.Memo),
		Priority:     priority,
		AddedAt:      now,
		UpdatedAt:    now,
	}
	s.entries = append(s.entries, entry)
	s.recompute()
	adapter := s.adapter
	s.mu.Unlock()

	if adapter != nil {
		if err := adapter.Put(ctx, entry); err != nil {
			return entry.Clone(), fmt.Errorf("persist entry: %w", err)
		}
	}
	return entry.Clone(), nil
}

// Update merges the tagged change into an existing entry. ID and AddedAt are
// immutable; UpdatedAt is stamped on every call. Unknown ids signal
// ErrNotFound without touching anything.
func (s *Store) Update(ctx context.Context, id string, change model.EntryChange) (model.WatchEntry, error) {
	if err := checkPrice(change.TargetPrice); err != nil {
		return model.WatchEntry{}, err
	}
	if err := checkPrice(change.CurrentPrice); err != nil {
		return model.WatchEntry{}, err
	}
	if change.Name != nil && strings.TrimSpace(*change.Name) == "" {
		return model.WatchEntry{}, fmt.Errorf("%w: name is required", ErrValidation)
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return model.WatchEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e := &s.entries[idx]
	if change.Name != nil {
		e.Name = strings.TrimSpace(*change.Name)
	}
	if change.Code != nil {
		e.Code = strings.TrimSpace(*change.Code)
	}
	if change.Memo != nil {
		e.Memo = strings.TrimSpace(*change.Memo)
	}
	if change.Priority != nil {
		p := *change.Priority
		if !p.Known() {
			p = model.PriorityMedium
		}
		e.Priority = p
	}
	if change.ClearTargetPrice {
		e.TargetPrice = nil
	} else if change.TargetPrice != nil {
		e.TargetPrice = clonePrice(change.TargetPrice)
	}
	if change.ClearCurrentPrice {
		e.CurrentPrice = nil
	} else if change.CurrentPrice != nil {
		e.CurrentPrice = clonePrice(change.CurrentPrice)
	}
	e.UpdatedAt = s.now()

	updated := e.Clone()
	s.recompute()
	adapter := s.adapter
	s.mu.Unlock()

	if adapter != nil {
		if err := adapter.Put(ctx, updated); err != nil {
			return updated, fmt.Errorf("persist entry: %w", err)
		}
	}
	return updated, nil
}

// UpdatePrice is shorthand for updating only the current price.
func (s *Store) UpdatePrice(ctx context.Context, id string, price float64) (model.WatchEntry, error) {
	return s.Update(ctx, id, model.EntryChange{CurrentPrice: &price})
}

// Delete removes an entry. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	s.recompute()
	adapter := s.adapter
	s.mu.Unlock()

	if adapter != nil {
		if err := adapter.Remove(ctx, id); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
	}
	return nil
}

// Count returns the number of entries.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// TriggeredCount returns how many entries currently satisfy the buy trigger,
// independent of dismissed notifications.
func (s *Store) TriggeredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.entries {
		if s.entries[i].Triggered() {
			n++
		}
	}
	return n
}

// Notifications returns the current buy-trigger notifications.
func (s *Store) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// Dismiss drops one notification without mutating the underlying entry. The
// next recompute may bring it back if the entry is still triggered.
func (s *Store) Dismiss(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
}

// DismissAll clears every notification.
func (s *Store) DismissAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
}

// Export renders the whole list as a pretty-printed JSON array. An empty
// list exports as "[]", never "null".
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.entries
	if entries == nil {
		entries = []model.WatchEntry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

// ExportFilename stamps the export with its date.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("watchlist-%s.json", now.Format("2006-01-02"))
}

// Import replaces the list with a JSON array of entries. Any non-array
// payload is rejected before any state change.
func (s *Store) Import(ctx context.Context, data []byte) (int, error) {
	var entries []model.WatchEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("%w: payload must be a JSON array of entries", ErrValidation)
	}

	s.mu.Lock()
	s.entries = entries
	s.recompute()
	adapter := s.adapter
	s.mu.Unlock()

	if adapter != nil {
		if err := adapter.ReplaceAll(ctx, entries); err != nil {
			return len(entries), fmt.Errorf("persist import: %w", err)
		}
	}
	return len(entries), nil
}

// recompute rebuilds the notification set. Callers must hold s.mu.
func (s *Store) recompute() {
	var notifications []model.Notification
	for i := range s.entries {
		e := &s.entries[i]
		if e.Triggered() {
			notifications = append(notifications, model.Notification{
				ID:      e.ID,
				Name:    e.Name,
				Message: model.TriggerMessage(e),
			})
		}
	}
	s.notifications = notifications
}

// indexOf finds an entry by id. Callers must hold s.mu.
func (s *Store) indexOf(id string) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

func checkPrice(p *float64) error {
	if p == nil {
		return nil
	}
	if math.IsNaN(*p) || math.IsInf(*p, 0) {
		return fmt.Errorf("%w: price must be a finite number", ErrValidation)
	}
	if *p < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return nil
}

func clonePrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneList(entries []model.WatchEntry) []model.WatchEntry {
	out := make([]model.WatchEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
