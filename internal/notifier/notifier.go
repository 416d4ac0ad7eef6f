package notifier

import (
	"context"
	"log"
)

// Notifier delivers buy-trigger alerts outside the process.
type Notifier interface {
	Send(text string) error
	Name() string
}

// RetrySender is implemented by channels that can retry transient delivery
// failures. Callers should prefer it over Send when available.
type RetrySender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// LogNotifier writes alerts to the process log. Used when no external
// channel is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Send(text string) error {
	log.Printf("[INFO] alert: %s", text)
	return nil
}
