package notify

import "context"

// Notifier delivers a batch summary.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }
