// Package refresh runs the periodic price refresh: fetch live quotes for
// every watched code, push them into the store, and announce entries that
// just reached their target.
package refresh

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/yuya-0906/investment-watchlist/internal/model"
	"github.com/yuya-0906/investment-watchlist/internal/notifier"
	"github.com/yuya-0906/investment-watchlist/internal/quote"
	"github.com/yuya-0906/investment-watchlist/internal/relay"
	"github.com/yuya-0906/investment-watchlist/internal/store"
)

const maxSendRetries = 3

// Job owns the refresh cron task.
type Job struct {
	Cron     *cron.Cron
	Store    *store.Store
	Fetcher  quote.Fetcher
	Notifier notifier.Notifier
	Ctx      context.Context

	mu        sync.Mutex
	announced map[string]bool // entry ids already alerted while triggered
}

// NewJob creates an unregistered refresh job.
func NewJob(ctx context.Context, st *store.Store, fetcher quote.Fetcher, n notifier.Notifier) *Job {
	return &Job{
		Cron:      cron.New(cron.WithSeconds()),
		Store:     st,
		Fetcher:   fetcher,
		Notifier:  n,
		Ctx:       ctx,
		announced: make(map[string]bool),
	}
}

// Register adds the refresh task under the given cron spec.
func (j *Job) Register(spec string) error {
	if _, err := j.Cron.AddFunc(spec, j.RunNow); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (j *Job) Start() {
	j.Cron.Start()
	log.Println("[INFO] refresh scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (j *Job) Stop() {
	j.Cron.Stop()
	log.Println("[INFO] refresh scheduler stopped")
}

// RunNow executes one refresh pass immediately.
func (j *Job) RunNow() {
	entries := j.Store.List(store.ListOptions{})
	if len(entries) == 0 {
		return
	}

	// One fetch per distinct code, applied to every entry carrying it.
	quotes := make(map[string]*quote.Quote)
	updated := 0
	for _, e := range entries {
		if e.Code == "" {
			continue
		}
		q, seen := quotes[e.Code]
		if !seen {
			ticker := relay.NormalizeCode(e.Code)
			fetched, err := j.Fetcher.FetchQuote(j.Ctx, ticker)
			if err != nil {
				log.Printf("[WARN] refresh %s (%s): %v", e.Name, ticker, err)
				quotes[e.Code] = nil
				continue
			}
			quotes[e.Code] = fetched
			q = fetched
		}
		if q == nil {
			continue
		}
		if _, err := j.Store.UpdatePrice(j.Ctx, e.ID, q.Price); err != nil {
			log.Printf("[ERROR] refresh price for %s: %v", e.Name, err)
			continue
		}
		updated++
	}
	log.Printf("[INFO] refresh pass done: %d entries updated", updated)

	j.announce()
}

// announce alerts newly-triggered entries once per triggered streak.
func (j *Job) announce() {
	notifications := j.Store.Notifications()

	j.mu.Lock()
	current := make(map[string]bool, len(notifications))
	var fresh []model.Notification
	for _, n := range notifications {
		current[n.ID] = true
		if !j.announced[n.ID] {
			fresh = append(fresh, n)
		}
	}
	j.announced = current
	j.mu.Unlock()

	for _, n := range fresh {
		text := fmt.Sprintf("🔔 <b>%s</b>\n%s", n.Name, n.Message)
		if err := j.trySend(text); err != nil {
			log.Printf("[ERROR] send alert for %s: %v", n.Name, err)
		}
	}
}

// trySend delivers one alert, retrying when the channel supports it.
func (j *Job) trySend(text string) error {
	if r, ok := j.Notifier.(notifier.RetrySender); ok {
		return r.SendWithRetry(j.Ctx, text, maxSendRetries)
	}
	return j.Notifier.Send(text)
}
