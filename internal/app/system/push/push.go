// Package push delivers mobile push notifications through Firebase Cloud
// Messaging.
package push

import (
	"context"

	"go.uber.org/zap"
)

// Message is the payload shown on the device.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Result reports per-token outcomes. Invalid lists tokens the provider says
// are no longer registered; callers remove them from the user.
type Result struct {
	Sent    int
	Failed  int
	Invalid []string
}

// Sender delivers a message to device tokens.
type Sender interface {
	Send(ctx context.Context, tokens []string, msg Message) (Result, error)
}

// Nop is used when push is not configured. It logs and reports success.
type Nop struct {
	Log *zap.Logger
}

func (n Nop) Send(_ context.Context, tokens []string, msg Message) (Result, error) {
	if n.Log != nil {
		n.Log.Debug("push disabled, dropping message",
			zap.Int("tokens", len(tokens)), zap.String("title", msg.Title))
	}
	return Result{Sent: len(tokens)}, nil
}
