// Package timeouts holds the deadlines applied to database and outbound
// calls made while serving a request or running a job.
//
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: list queries and multi-step reads
//   - Long: workflows spanning several collections (ride completion, settlement)
//   - Batch: sweeps and exports
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure is called.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 2 * time.Minute
)

var (
	mu     sync.RWMutex
	values = Config{
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Medium: DefaultMedium,
		Long:   DefaultLong,
		Batch:  DefaultBatch,
	}
)

// Config holds timeout values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(values)
}

func Ping() time.Duration   { return get(func(c Config) time.Duration { return c.Ping }) }
func Short() time.Duration  { return get(func(c Config) time.Duration { return c.Short }) }
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }
func Long() time.Duration   { return get(func(c Config) time.Duration { return c.Long }) }
func Batch() time.Duration  { return get(func(c Config) time.Duration { return c.Batch }) }

// Configure overrides the non-zero fields of cfg. Call it during startup.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	set(&values.Ping, cfg.Ping)
	set(&values.Short, cfg.Short)
	set(&values.Medium, cfg.Medium)
	set(&values.Long, cfg.Long)
	set(&values.Batch, cfg.Batch)
}

// Current returns the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return values
}

// Reset restores the defaults. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	values = Config{DefaultPing, DefaultShort, DefaultMedium, DefaultLong, DefaultBatch}
}

// WithTimeout derives a context with the given timeout. The returned cancel
// logs a warning when the deadline, rather than the caller, ended the work.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "complete ride")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
