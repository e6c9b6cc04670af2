// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	usersvc "github.com/dalemusser/ridehub/internal/app/services/users"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	rolestore "github.com/dalemusser/ridehub/internal/app/store/roles"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs after the schema is in place and before the handler is
// built. It makes sure the configured super admin exists.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.SuperAdminEmail == "" {
		logger.Warn("superadmin_email is not set; no admin account was ensured")
		return nil
	}
	db := deps.MongoDatabase
	users := usersvc.New(userstore.New(db), rolestore.New(db), audit.New(db),
		auth.NewResetTokens(appCfg.SessionKey, appCfg.ResetTokenTTL), nil, appCfg.BaseURL, logger.Named("users"))
	return users.EnsureSuperAdmin(ctx, appCfg.SuperAdminEmail, appCfg.SuperAdminPassword)
}
