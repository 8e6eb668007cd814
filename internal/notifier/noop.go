package notifier

import (
	"context"
	"log"
)

// NoopNotifier logs messages instead of sending them; used when Telegram
// is not configured (dry runs, local development).
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier { return &NoopNotifier{} }

func (n *NoopNotifier) Send(text string) error {
	log.Printf("[INFO] (noop notifier) %s", text)
	return nil
}

func (n *NoopNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	return n.Send(text)
}
