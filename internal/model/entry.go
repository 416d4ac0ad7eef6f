package model

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Priority ranks how closely an entry is being watched.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting: high(0) < medium(1) < low(2).
// Unrecognized values rank as medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Known reports whether p is one of the three defined levels.
func (p Priority) Known() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// WatchEntry is one tracked security with its target/current price and metadata.
// The JSON field names match the persisted list record.
type WatchEntry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code,omitempty"`
	TargetPrice  *float64  `json:"targetPrice,omitempty"`
	CurrentPrice *float64  `json:"currentPrice,omitempty"`
	Memo         string    `json:"memo,omitempty"`
	Priority     Priority  `json:"priority"`
	AddedAt      time.Time `json:"addedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Triggered reports whether the current price has reached the target:
// both prices present and current <= target.
func (e *WatchEntry) Triggered() bool {
	return e.TargetPrice != nil && e.CurrentPrice != nil && *e.CurrentPrice <= *e.TargetPrice
}

// Clone returns a deep copy so callers can't mutate the store's state
// through shared price pointers.
func (e WatchEntry) Clone() WatchEntry {
	c := e
	if e.TargetPrice != nil {
		v := *e.TargetPrice
		c.TargetPrice = &v
	}
	if e.CurrentPrice != nil {
		v := *e.CurrentPrice
		c.CurrentPrice = &v
	}
	return c
}

// NewEntry carries the fields supplied when creating an entry.
type NewEntry struct {
	Name         string
	Code         string
	TargetPrice  *float64
	CurrentPrice *float64
	Memo         string
	Priority     Priority
}

// EntryChange names exactly which optional fields an update is touching.
// A nil pointer leaves the field unchanged; the Clear flags remove the
// corresponding price. ID and AddedAt are immutable and not expressible here.
type EntryChange struct {
	Name              *string
	Code              *string
	TargetPrice       *float64
	CurrentPrice      *float64
	Memo              *string
	Priority          *Priority
	ClearTargetPrice  bool
	ClearCurrentPrice bool
}

// Notification is derived, never persisted: one per currently-triggered
// entry, keyed by entry ID.
type Notification struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// FormatPrice renders a yen amount with thousands separators, or a dash
// when absent.
func FormatPrice(p *float64) string {
	if p == nil {
		return "—"
	}
	return "¥" + humanize.Commaf(*p)
}

// TriggerMessage builds the buy-alert message for a triggered entry.
func TriggerMessage(e *WatchEntry) string {
	return fmt.Sprintf("現在価格 %s が目標 %s 以下です！",
		FormatPrice(e.CurrentPrice), FormatPrice(e.TargetPrice))
}
