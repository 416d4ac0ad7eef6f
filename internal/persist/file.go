package persist

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/yuya-0906/investment-watchlist/internal/model"
)

// FileAdapter stores the whole list as one pretty-printed JSON document.
// Writes are best-effort: failures are logged and swallowed, so the store's
// in-memory list stays authoritative for the session. There are no partial
// writes; every mutation rewrites the full document.
type FileAdapter struct {
	mu   sync.Mutex
	path string
}

// NewFileAdapter creates a file-backed adapter at the given path.
func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path}
}

// Load reads the persisted list. A missing or corrupt file yields
// (nil, nil) so the caller can fall back to a seed list.
func (a *FileAdapter) Load(_ context.Context) ([]model.WatchEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.read(), nil
}

func (a *FileAdapter) read() []model.WatchEntry {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[WARN] read watchlist file: %v", err)
		}
		return nil
	}
	var entries []model.WatchEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("[WARN] corrupt watchlist file %s: %v", a.path, err)
		return nil
	}
	return entries
}

func (a *FileAdapter) write(entries []model.WatchEntry) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		log.Printf("[ERROR] encode watchlist: %v", err)
		return
	}
	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("[ERROR] create data dir: %v", err)
			return
		}
	}
	if err := os.WriteFile(a.path, data, 0644); err != nil {
		log.Printf("[ERROR] save watchlist file: %v", err)
	}
}

func (a *FileAdapter) Put(_ context.Context, e model.WatchEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	entries := a.read()
	replaced := false
	for i := range entries {
		if entries[i].ID == e.ID {
			entries[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, e)
	}
	a.write(entries)
	return nil
}

func (a *FileAdapter) Remove(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	entries := a.read()
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	a.write(kept)
	return nil
}

func (a *FileAdapter) ReplaceAll(_ context.Context, entries []model.WatchEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.write(entries)
	return nil
}

// Subscribe is a no-op: the file adapter has no live push.
func (a *FileAdapter) Subscribe(_ func([]model.WatchEntry)) func() {
	return func() {}
}

func (a *FileAdapter) Close() error { return nil }
