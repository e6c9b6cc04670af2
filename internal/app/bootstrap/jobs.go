// internal/app/bootstrap/jobs.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/ridehub/internal/app/services/registry"
	"github.com/dalemusser/ridehub/internal/app/system/tasks"
	"go.uber.org/zap"
)

const (
	// staleRideAge is how long a ride may wait for a driver.
	staleRideAge      = 30 * time.Minute
	staleRideInterval = 5 * time.Minute

	settleRetryInterval = 15 * time.Minute
	settleRetryBatch    = 100
)

// Jobs returns the scheduled background work.
func Jobs(set *registry.Set, appCfg AppConfig, logger *zap.Logger) []tasks.Job {
	log := logger.Named("jobs")
	return []tasks.Job{
		{
			Name:     "subscription-expiration",
			Schedule: tasks.DailyAt(appCfg.SweepHour, 0),
			Run: func(ctx context.Context) error {
				_, err := set.Subscriptions.RunExpirationSweep(ctx)
				return err
			},
		},
		{
			Name:     "evp-expiration",
			Schedule: tasks.DailyAt(appCfg.SweepHour, 0),
			Run: func(ctx context.Context) error {
				_, err := set.Evps.RunExpirationSweep(ctx)
				return err
			},
		},
		{
			Name:     "stale-rides",
			Schedule: tasks.Every(staleRideInterval),
			Run: func(ctx context.Context) error {
				cancelled, failed, err := set.Rides.CancelStale(ctx, staleRideAge)
				if cancelled > 0 || failed > 0 {
					log.Info("stale rides cancelled", zap.Int("cancelled", cancelled), zap.Int("failed", failed))
				}
				return err
			},
		},
		{
			Name:     "unsettled-rides",
			Schedule: tasks.Every(settleRetryInterval),
			Run: func(ctx context.Context) error {
				settled, failed, err := set.Rides.RetryUnsettled(ctx, settleRetryBatch)
				if settled > 0 || failed > 0 {
					log.Info("ride settlement retried", zap.Int("settled", settled), zap.Int("failed", failed))
				}
				return err
			},
		},
	}
}
