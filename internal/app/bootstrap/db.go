// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/ridehub/internal/app/store/audit"
	settingsstore "github.com/dalemusser/ridehub/internal/app/store/settings"
	"github.com/dalemusser/ridehub/internal/app/system/indexes"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"github.com/dalemusser/ridehub/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB opens the MongoDB client and verifies it with a ping.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("ridehub")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		Background:    &Background{},
	}, nil
}

// EnsureSchema creates collections with their validators, then indexes,
// and writes the default platform settings on first start. Every step is
// idempotent.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	if err := validators.EnsureAll(ctx, db, logger.Named("schema")); err != nil {
		logger.Error("collection validators failed", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return err
	}
	if err := audit.New(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("audit indexes: %w", err)
	}
	if err := settingsstore.New(db).Init(ctx); err != nil {
		return fmt.Errorf("platform settings: %w", err)
	}
	return nil
}
