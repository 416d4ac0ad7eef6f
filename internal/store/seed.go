package store

import (
	"time"

	"github.com/yuya-0906/investment-watchlist/internal/model"
)

// SeedEntries is the starter list installed on first run when local storage
// is empty.
func SeedEntries() []model.WatchEntry {
	price := func(v float64) *float64 { return &v }
	return []model.WatchEntry{
		{
			ID:           "sample1",
			Name:         "トヨタ自動車",
			Code:         "7203",
			TargetPrice:  price(2500),
			CurrentPrice: price(2800),
			Memo:         "EV戦略に注目。決算後の下落を待ちたい",
			Priority:     model.PriorityHigh,
			AddedAt:      time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
			UpdatedAt:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:           "sample2",
			Name:         "ソニーグループ",
			Code:         "6758",
			TargetPrice:  price(3200),
			CurrentPrice: price(3100),
			Memo:         "ゲーム・音楽事業が好調。買い時かも",
			Priority:     model.PriorityHigh,
			AddedAt:      time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC),
			UpdatedAt:    time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:           "sample3",
			Name:         "任天堂",
			Code:         "7974",
			TargetPrice:  price(8000),
			CurrentPrice: price(8500),
			Memo:         "次世代機の発表待ち",
			Priority:     model.PriorityMedium,
			AddedAt:      time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			UpdatedAt:    time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC),
		},
	}
}
