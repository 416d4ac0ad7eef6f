package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-0906/investment-watchlist/internal/model"
	"github.com/yuya-0906/investment-watchlist/internal/persist"
	"github.com/yuya-0906/investment-watchlist/internal/quote"
	"github.com/yuya-0906/investment-watchlist/internal/store"
)

// captureNotifier records sent alerts.
type captureNotifier struct {
	sent []string
}

func (c *captureNotifier) Name() string { return "capture" }
func (c *captureNotifier) Send(text string) error {
	c.sent = append(c.sent, text)
	return nil
}

func price(v float64) *float64 { return &v }

func newTestJob(t *testing.T, quotes map[string]*quote.Quote) (*Job, *store.Store, *captureNotifier) {
	t.Helper()
	st := store.New()
	require.NoError(t, st.Bind(context.Background(), persist.NewMemoryAdapter(), nil))
	n := &captureNotifier{}
	job := NewJob(context.Background(), st, &quote.MockFetcher{Quotes: quotes}, n)
	return job, st, n
}

func TestRunNow_UpdatesPricesFromQuotes(t *testing.T) {
	job, st, _ := newTestJob(t, map[string]*quote.Quote{
		"7203.T": {Price: 2450, Currency: "JPY", MarketTime: time.Now()},
	})
	created, err := st.Create(context.Background(), model.NewEntry{
		Name: "トヨタ自動車", Code: "7203", TargetPrice: price(2500),
	})
	require.NoError(t, err)

	job.RunNow()

	entries := st.List(store.ListOptions{})
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].CurrentPrice)
	assert.Equal(t, 2450.0, *entries[0].CurrentPrice)
	assert.Equal(t, created.ID, entries[0].ID)
}

func TestRunNow_FetchFailureSkipsEntry(t *testing.T) {
	job, st, _ := newTestJob(t, map[string]*quote.Quote{
		"7203.T": {Price: 2450, Currency: "JPY", MarketTime: time.Now()},
	})
	_, err := st.Create(context.Background(), model.NewEntry{Name: "トヨタ", Code: "7203"})
	require.NoError(t, err)
	_, err = st.Create(context.Background(), model.NewEntry{Name: "未知", Code: "9999"})
	require.NoError(t, err)
	_, err = st.Create(context.Background(), model.NewEntry{Name: "コードなし"})
	require.NoError(t, err)

	job.RunNow()

	for _, e := range st.List(store.ListOptions{}) {
		switch e.Name {
		case "トヨタ":
			require.NotNil(t, e.CurrentPrice)
			assert.Equal(t, 2450.0, *e.CurrentPrice)
		default:
			assert.Nil(t, e.CurrentPrice, "%s must be untouched", e.Name)
		}
	}
}

func TestRunNow_AnnouncesNewTriggersOnce(t *testing.T) {
	job, st, n := newTestJob(t, map[string]*quote.Quote{
		"7203.T": {Price: 2450, Currency: "JPY", MarketTime: time.Now()},
	})
	_, err := st.Create(context.Background(), model.NewEntry{
		Name: "トヨタ自動車", Code: "7203", TargetPrice: price(2500),
	})
	require.NoError(t, err)

	job.RunNow()
	require.Len(t, n.sent, 1, "reaching the target alerts once")
	assert.Contains(t, n.sent[0], "トヨタ自動車")
	assert.Contains(t, n.sent[0], "¥2,450")

	// Still triggered on the next pass: no duplicate alert.
	job.RunNow()
	assert.Len(t, n.sent, 1)
}

func TestRunNow_ReTriggersAfterRecovery(t *testing.T) {
	quotes := map[string]*quote.Quote{
		"7203.T": {Price: 2450, Currency: "JPY", MarketTime: time.Now()},
	}
	job, st, n := newTestJob(t, quotes)
	_, err := st.Create(context.Background(), model.NewEntry{
		Name: "トヨタ自動車", Code: "7203", TargetPrice: price(2500),
	})
	require.NoError(t, err)

	job.RunNow()
	require.Len(t, n.sent, 1)

	// Price recovers above target, then drops again: a fresh alert fires.
	quotes["7203.T"] = &quote.Quote{Price: 2600, Currency: "JPY", MarketTime: time.Now()}
	job.RunNow()
	require.Len(t, n.sent, 1)

	quotes["7203.T"] = &quote.Quote{Price: 2400, Currency: "JPY", MarketTime: time.Now()}
	job.RunNow()
	assert.Len(t, n.sent, 2)
}

// retryNotifier is a capture channel that also advertises retry support.
type retryNotifier struct {
	captureNotifier
	retried []string
}

func (r *retryNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	r.retried = append(r.retried, text)
	return nil
}

func TestRunNow_AlertsUseRetryWhenAvailable(t *testing.T) {
	st := store.New()
	require.NoError(t, st.Bind(context.Background(), persist.NewMemoryAdapter(), nil))
	n := &retryNotifier{}
	job := NewJob(context.Background(), st, &quote.MockFetcher{Quotes: map[string]*quote.Quote{
		"7203.T": {Price: 2450, Currency: "JPY", MarketTime: time.Now()},
	}}, n)
	_, err := st.Create(context.Background(), model.NewEntry{
		Name: "トヨタ自動車", Code: "7203", TargetPrice: price(2500),
	})
	require.NoError(t, err)

	job.RunNow()

	require.Len(t, n.retried, 1, "retry-capable channel must receive the alert")
	assert.Empty(t, n.sent, "plain Send must be bypassed")
	assert.Contains(t, n.retried[0], "トヨタ自動車")
}

func TestRegister_RejectsBadSpec(t *testing.T) {
	job, _, _ := newTestJob(t, nil)
	assert.Error(t, job.Register("not a cron spec"))
	assert.NoError(t, job.Register("0 */30 9-15 * * 1-5"))
}
