package store

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/yuya-0906/investment-watchlist/internal/model"
)

// SortKey selects the list ordering.
type SortKey string

const (
	SortByDate     SortKey = "date"     // AddedAt descending, newest first
	SortByPriority SortKey = "priority" // high before medium before low
	SortByName     SortKey = "name"     // locale-aware ascending
)

// FilterAll keeps every priority.
const FilterAll = "all"

// ListOptions narrows and orders the derived view. The priority filter and
// the search query both apply (AND). The zero value means: all priorities,
// no query, date order.
type ListOptions struct {
	Filter string
	Sort   SortKey
	Query  string
}

// List returns a filtered, sorted copy of the entries. It never mutates
// store state.
func (s *Store) List(opts ListOptions) []model.WatchEntry {
	s.mu.Lock()
	matched := make([]model.WatchEntry, 0, len(s.entries))
	query := strings.ToLower(strings.TrimSpace(opts.Query))
	for i := range s.entries {
		e := &s.entries[i]
		if opts.Filter != "" && opts.Filter != FilterAll && string(e.Priority) != opts.Filter {
			continue
		}
		if query != "" && !matchesQuery(e, query) {
			continue
		}
		matched = append(matched, e.Clone())
	}
	s.mu.Unlock()

	switch opts.Sort {
	case SortByPriority:
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Priority.Rank() < matched[j].Priority.Rank()
		})
	case SortByName:
		c := collate.New(language.Japanese)
		sort.SliceStable(matched, func(i, j int) bool {
			return c.CompareString(matched[i].Name, matched[j].Name) < 0
		})
	default: // SortByDate
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].AddedAt.After(matched[j].AddedAt)
		})
	}
	return matched
}

// matchesQuery reports whether a lowercased query hits the name or memo
// case-insensitively, or the code by substring.
func matchesQuery(e *model.WatchEntry, query string) bool {
	if strings.Contains(strings.ToLower(e.Name), query) {
		return true
	}
	if e.Code != "" && strings.Contains(e.Code, query) {
		return true
	}
	return e.Memo != "" && strings.Contains(strings.ToLower(e.Memo), query)
}
