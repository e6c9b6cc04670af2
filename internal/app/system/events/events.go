// Package events is an in-process publish/subscribe bus for domain events.
//
// Publish never blocks the caller on handler work and never returns a
// handler's error: each handler runs on its own goroutine with a bounded
// context, and failures (including panics) are logged once.
package events

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Topic names.
const (
	UserRegistered           = "user.registered"
	UserPasswordResetRequest = "user.password_reset_requested"
	UserPasswordChanged      = "user.password_changed"
	AdminCreated             = "admin.created"
	AdminLoginFailedLocked   = "admin.login_failed_locked"

	RideRequested     = "ride.requested"
	RideStatusChanged = "ride.status_changed"

	DocumentReviewed    = "document.reviewed"
	WithdrawalProcessed = "withdrawal.processed"

	SubscriptionExpiring = "subscription.expiring"
	SubscriptionExpired  = "subscription.expired"
	EvpExpiring          = "evp.expiring"
	EvpExpired           = "evp.expired"
)

// Event is anything with a topic. Payload types live in payloads.go.
type Event interface {
	Topic() string
}

// Handler reacts to one event.
type Handler func(ctx context.Context, e Event) error

type subscription struct {
	name string
	fn   Handler
}

// DefaultHandlerTimeout bounds each handler invocation.
const DefaultHandlerTimeout = 30 * time.Second

// Bus fans events out to subscribers.
type Bus struct {
	log     *zap.Logger
	timeout time.Duration

	mu   sync.RWMutex
	subs map[string][]subscription
	wg   sync.WaitGroup
}

// NewBus returns an empty bus. A zero timeout uses DefaultHandlerTimeout.
func NewBus(logger *zap.Logger, timeout time.Duration) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultHandlerTimeout
	}
	return &Bus{log: logger, timeout: timeout, subs: make(map[string][]subscription)}
}

// Subscribe registers fn for topic. name identifies the handler in logs.
func (b *Bus) Subscribe(topic, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], subscription{name: name, fn: fn})
}

// Publish dispatches e to every subscriber of its topic. The handler context
// keeps ctx's values but not its cancellation, so a finished HTTP request
// does not abort delivery.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if b == nil || e == nil {
		return
	}
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[e.Topic()]...)
	b.mu.RUnlock()

	base := context.WithoutCancel(ctx)
	for _, s := range subs {
		b.wg.Add(1)
		go b.dispatch(base, s, e)
	}
}

func (b *Bus) dispatch(base context.Context, s subscription, e Event) {
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(base, b.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
				b.log.Error("event handler panic",
					zap.String("stack", string(debug.Stack())))
			}
		}()
		return s.fn(ctx, e)
	}()
	if err != nil {
		b.log.Warn("event handler failed",
			zap.String("topic", e.Topic()),
			zap.String("handler", s.name),
			zap.Error(err))
	}
}

// Wait blocks until every in-flight handler has returned.
func (b *Bus) Wait() {
	if b != nil {
		b.wg.Wait()
	}
}

// WaitContext is Wait bounded by ctx. It reports whether the bus drained.
func (b *Bus) WaitContext(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		b.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
