package persist

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yuya-0906/investment-watchlist/internal/model"
)

// SQLiteAdapter is the per-identity document store. Each entry is one row
// scoped by owner; mutations are upserts/deletes keyed by entry id, and every
// successful mutation pushes a fresh snapshot (ordered by added_at descending)
// to subscribers on its own goroutine. Errors propagate to the caller: in
// this mode the store's list is only a cache.
type SQLiteAdapter struct {
	db    *sql.DB
	owner string

	mu      sync.Mutex
	subs    map[int]func([]model.WatchEntry)
	nextSub int
}

// NewSQLiteAdapter opens (or creates) the database, runs migrations, and
// scopes all operations to the given owner.
func NewSQLiteAdapter(dbPath, owner string) (*SQLiteAdapter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so snapshot reads don't block writers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	a := &SQLiteAdapter{db: db, owner: owner, subs: make(map[int]func([]model.WatchEntry))}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite watchlist store opened: %s (owner=%s)", dbPath, owner)
	return a, nil
}

func (a *SQLiteAdapter) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS watch_entries (
			owner         TEXT NOT NULL,
			id            TEXT NOT NULL,
			name          TEXT NOT NULL,
			code          TEXT NOT NULL DEFAULT '',
			target_price  REAL,
			current_price REAL,
			memo          TEXT NOT NULL DEFAULT '',
			priority      TEXT NOT NULL DEFAULT 'medium',
			added_at      INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL,
			PRIMARY KEY (owner, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_owner_added ON watch_entries(owner, added_at)`,
	}
	for _, s := range stmts {
		if _, err := a.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Load returns the owner's list ordered by added_at descending, matching the
// default date sort.
func (a *SQLiteAdapter) Load(ctx context.Context) ([]model.WatchEntry, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id, name, code, target_price, current_price,
		memo, priority, added_at, updated_at
		FROM watch_entries WHERE owner = ? ORDER BY added_at DESC, id`, a.owner)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	var entries []model.WatchEntry
	for rows.Next() {
		var (
			entry           model.WatchEntry
			target, current sql.NullFloat64
			added, updated  int64
		)
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Code, &target, &current,
			&entry.Memo, &entry.Priority, &added, &updated); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if target.Valid {
			v := target.Float64
			entry.TargetPrice = &v
		}
		if current.Valid {
			v := current.Float64
			entry.CurrentPrice = &v
		}
		entry.AddedAt = time.Unix(0, added)
		entry.UpdatedAt = time.Unix(0, updated)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Put upserts one entry by id (whole-entry overwrite, last write wins).
func (a *SQLiteAdapter) Put(ctx context.Context, e model.WatchEntry) error {
	_, err := a.db.ExecContext(ctx, `INSERT INTO watch_entries
		(owner, id, name, code, target_price, current_price, memo, priority, added_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(owner, id) DO UPDATE SET
			name = excluded.name,
			code = excluded.code,
			target_price = excluded.target_price,
			current_price = excluded.current_price,
			memo = excluded.memo,
			priority = excluded.priority,
			updated_at = excluded.updated_at`,
		a.owner, e.ID, e.Name, e.Code, nullable(e.TargetPrice), nullable(e.CurrentPrice),
		e.Memo, string(e.Priority), e.AddedAt.UnixNano(), e.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("put entry %s: %w", e.ID, err)
	}
	a.publish(ctx)
	return nil
}

func (a *SQLiteAdapter) Remove(ctx context.Context, id string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM watch_entries WHERE owner = ? AND id = ?`, a.owner, id)
	if err != nil {
		return fmt.Errorf("remove entry %s: %w", id, err)
	}
	a.publish(ctx)
	return nil
}

// ReplaceAll swaps the owner's whole list in one transaction (import path).
func (a *SQLiteAdapter) ReplaceAll(ctx context.Context, entries []model.WatchEntry) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM watch_entries WHERE owner = ?`, a.owner); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `INSERT INTO watch_entries
			(owner, id, name, code, target_price, current_price, memo, priority, added_at, updated_at)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			a.owner, e.ID, e.Name, e.Code, nullable(e.TargetPrice), nullable(e.CurrentPrice),
			e.Memo, string(e.Priority), e.AddedAt.UnixNano(), e.UpdatedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	a.publish(ctx)
	return nil
}

// Subscribe registers a snapshot handler. Delivery is asynchronous and may
// land after the caller's own optimistic update; last snapshot wins.
func (a *SQLiteAdapter) Subscribe(onChange func([]model.WatchEntry)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = onChange
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subs, id)
	}
}

func (a *SQLiteAdapter) publish(ctx context.Context) {
	a.mu.Lock()
	handlers := make([]func([]model.WatchEntry), 0, len(a.subs))
	for _, fn := range a.subs {
		handlers = append(handlers, fn)
	}
	a.mu.Unlock()
	if len(handlers) == 0 {
		return
	}

	snapshot, err := a.Load(ctx)
	if err != nil {
		log.Printf("[WARN] snapshot after mutation failed: %v", err)
		return
	}
	for _, fn := range handlers {
		go fn(snapshot)
	}
}

func (a *SQLiteAdapter) Close() error {
	log.Println("[INFO] closing sqlite watchlist store")
	return a.db.Close()
}

func nullable(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
