package quote

import (
	"context"
	"fmt"
	"time"
)

// Quote is the latest metadata for one ticker.
type Quote struct {
	Price         float64
	PreviousClose float64
	Currency      string
	Name          string
	MarketTime    time.Time
}

// Fetcher defines the interface for fetching live quotes.
type Fetcher interface {
	FetchQuote(ctx context.Context, ticker string) (*Quote, error)
	Name() string
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Quotes map[string]*Quote
	Err    error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchQuote(_ context.Context, ticker string) (*Quote, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if q, ok := m.Quotes[ticker]; ok {
		return q, nil
	}
	return nil, fmt.Errorf("mock: no quote for %s", ticker)
}
