// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the job scheduler, lets in-flight event handlers finish
// and closes the MongoDB client.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	bus, sched := deps.Background.get()
	if sched != nil {
		sched.Stop()
	}
	if bus != nil && !bus.WaitContext(ctx) {
		logger.Warn("event handlers still running at shutdown")
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
