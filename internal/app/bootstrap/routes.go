// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	accountfeature "github.com/dalemusser/ridehub/internal/app/features/account"
	adminfeature "github.com/dalemusser/ridehub/internal/app/features/adminapi"
	authfeature "github.com/dalemusser/ridehub/internal/app/features/authapi"
	driverfeature "github.com/dalemusser/ridehub/internal/app/features/driverapi"
	healthfeature "github.com/dalemusser/ridehub/internal/app/features/health"
	passengerfeature "github.com/dalemusser/ridehub/internal/app/features/passengerapi"
	termsfeature "github.com/dalemusser/ridehub/internal/app/features/terms"
	"github.com/dalemusser/ridehub/internal/app/listeners"
	"github.com/dalemusser/ridehub/internal/app/services/registry"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/auditlog"
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/mailer"
	"github.com/dalemusser/ridehub/internal/app/system/metrics"
	"github.com/dalemusser/ridehub/internal/app/system/push"
	"github.com/dalemusser/ridehub/internal/app/system/ratelimit"
	"github.com/dalemusser/ridehub/internal/app/system/tasks"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler.
//
// WAFFLE calls it after configuration, DB connections, schema setup and
// Startup. It assembles the service layer, subscribes the notification
// listeners, starts the background jobs and mounts every API surface:
//
//	/health, /metrics          liveness and Prometheus
//	/api/pages                 public legal pages
//	/api/auth                  app registration, login, password reset
//	/api/admin/auth            admin console login/logout
//	/api/user                  passenger app
//	/api/driver                driver app
//	/api/admin                 admin console
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	ctx := context.Background()
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessions, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	tokens, err := auth.NewTokenService(appCfg.JWTSecret, appCfg.JWTTTL, "ridehub")
	if err != nil {
		return nil, err
	}

	blobs, err := newBlobStore(ctx, appCfg)
	if err != nil {
		logger.Error("blob store init failed", zap.Error(err))
		return nil, err
	}
	var sender push.Sender
	if appCfg.FCMProjectID != "" {
		fcm, err := push.NewFCM(push.FCMConfig{
			ProjectID:       appCfg.FCMProjectID,
			CredentialsFile: appCfg.FCMCredentialsFile,
		}, logger.Named("push"))
		if err != nil {
			logger.Error("FCM init failed", zap.Error(err))
			return nil, err
		}
		sender = fcm
	}

	m := metrics.New()
	bus := events.NewBus(logger.Named("events"), events.DefaultHandlerTimeout)
	set := registry.New(db, registry.Options{
		ResetSecret:   appCfg.SessionKey,
		ResetTokenTTL: appCfg.ResetTokenTTL,
		BaseURL:       appCfg.BaseURL,
		Blobs:         blobs,
		Push:          sender,
		Bus:           bus,
		Metrics:       m,
		Logger:        logger,
	})

	listeners.Register(bus, listeners.Deps{
		Mail: mailer.New(mailer.Config{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			Username: appCfg.MailSMTPUser,
			Password: appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
		}, logger.Named("mail")),
		Notify:         set.Notifications,
		Users:          set.Stores.Users,
		SiteName:       appCfg.MailFromName,
		BaseURL:        appCfg.BaseURL,
		ResetExpiresIn: humanDuration(appCfg.ResetTokenTTL),
		Log:            logger.Named("listeners"),
	})

	var sched *tasks.Scheduler
	if appCfg.JobsEnabled {
		sched = tasks.NewScheduler(set.Stores.JobLocks, appCfg.JobLockTTL, logger.Named("jobs"), m)
		for _, j := range Jobs(set, appCfg, logger) {
			sched.Add(j)
		}
		sched.Start(ctx)
	}
	deps.Background.set(bus, sched)

	auditLog := auditlog.New(set.Stores.Audit, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(m.Middleware)

	// Loads the caller from a Bearer token or the admin console cookie.
	// Fresh user data is fetched on each request so disabled accounts and
	// role changes take effect immediately.
	authn := &auth.Authenticator{Tokens: tokens, Sessions: sessions, Users: set.Stores.Users, Log: logger}
	r.Use(authn.Load)

	r.NotFound(apierr.NotFoundHandler)
	r.MethodNotAllowed(apierr.MethodNotAllowedHandler)

	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, logger)))
	r.Handle("/metrics", m.Handler())

	// Uploaded documents are private to drivers and reviewers. An absolute
	// storage_local_url means another server hosts the files.
	prefix := strings.TrimSuffix(appCfg.StorageLocalURL, "/")
	if appCfg.StorageType == "local" && strings.HasPrefix(prefix, "/") {
		r.With(auth.RequireRole(models.RoleDriver, models.RoleAdmin)).
			Handle(prefix+"/*", fileserver.Handler(prefix, appCfg.StorageLocalPath))
	}

	r.Mount("/api/pages", termsfeature.Routes(termsfeature.NewHandler(set.Settings, logger)))

	authHandler := authfeature.NewHandler(set.Users, tokens, sessions, ratelimit.NewLoginLimiter(), auditLog, logger)
	r.Mount("/api/auth", authfeature.Routes(authHandler))
	r.Mount("/api/admin/auth", authfeature.AdminRoutes(authHandler))

	acct := accountfeature.NewHandler(set.Users, set.Wallet, set.Notifications, auditLog, logger)

	r.Mount("/api/user", passengerfeature.Routes(
		passengerfeature.NewHandler(acct, set.Rides, set.Ratings, set.Contacts, logger)))

	r.Mount("/api/driver", driverfeature.Routes(driverfeature.NewHandler(acct, driverfeature.Services{
		Users:         set.Users,
		Locations:     set.Locations,
		Rides:         set.Rides,
		Ratings:       set.Ratings,
		Documents:     set.Documents,
		Withdrawals:   set.Withdrawals,
		Subscriptions: set.Subscriptions,
		Evps:          set.Evps,
	}, logger)))

	r.Mount("/api/admin", adminfeature.Routes(adminfeature.NewHandler(acct, adminfeature.Services{
		Users:         set.Users,
		Roles:         set.Roles,
		Settings:      set.Settings,
		Documents:     set.Documents,
		Withdrawals:   set.Withdrawals,
		Wallet:        set.Wallet,
		Rides:         set.Rides,
		Ratings:       set.Ratings,
		Subscriptions: set.Subscriptions,
		Evps:          set.Evps,
		Dashboard:     set.Dashboard,
	}, set.Stores.Roles, set.Stores.Audit, auditLog, logger)))

	return r, nil
}

func newBlobStore(ctx context.Context, appCfg AppConfig) (storage.Store, error) {
	if appCfg.StorageType == "s3" {
		return storage.NewS3(ctx, storage.S3Config{
			Region: appCfg.StorageS3Region,
			Bucket: appCfg.StorageS3Bucket,
			Prefix: appCfg.StorageS3Prefix,
		})
	}
	return storage.NewLocal(storage.LocalConfig{
		BasePath: appCfg.StorageLocalPath,
		BaseURL:  appCfg.StorageLocalURL,
	})
}

// humanDuration renders whole hours or minutes for email copy.
func humanDuration(d time.Duration) string {
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	if d >= time.Hour && d%time.Hour == 0 {
		return plural(int(d/time.Hour), "hour")
	}
	return plural(int(d.Round(time.Minute)/time.Minute), "minute")
}
