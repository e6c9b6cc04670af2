// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minSecretLen is the shortest accepted signing secret.
const minSecretLen = 32

// appConfigKeys defines the configuration keys for RideHub. Each key can be
// set in a config file (mongo_uri), the environment (RIDEHUB_MONGO_URI) or a
// flag (--mongo_uri).
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "ridehub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Access token signing secret (at least 32 bytes)"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Access token lifetime"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Admin session and reset token signing key"},
	{Name: "session_name", Default: "ridehub-admin", Desc: "Admin session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Document storage
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded documents"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "documents/", Desc: "S3 key prefix"},

	// Email/SMTP
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port (465 for implicit TLS, otherwise STARTTLS)"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@ridehub.app", Desc: "From email address"},
	{Name: "mail_from_name", Default: "RideHub", Desc: "From display name"},

	// Push
	{Name: "fcm_project_id", Default: "", Desc: "Firebase project id (blank disables push)"},
	{Name: "fcm_credentials_file", Default: "", Desc: "Path to the FCM service account JSON"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for email links"},
	{Name: "reset_token_ttl", Default: "1h", Desc: "Password reset link lifetime"},

	// Audit logging
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Background jobs
	{Name: "jobs_enabled", Default: true, Desc: "Run the scheduled sweeps in this process"},
	{Name: "sweep_hour", Default: 2, Desc: "UTC hour of the daily subscription and EVP sweeps"},
	{Name: "job_lock_ttl", Default: "10m", Desc: "Lease held by the instance running a job"},

	// SuperAdmin bootstrap
	{Name: "superadmin_email", Default: "", Desc: "Email of the superadmin (promotes or creates on startup)"},
	{Name: "superadmin_password", Default: "", Desc: "Initial superadmin password (blank logs a temporary one)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// Precedence is flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "RIDEHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTTTL:    appValues.Duration("jwt_ttl", 24*time.Hour),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),
		StorageS3Region:  appValues.String("storage_s3_region"),
		StorageS3Bucket:  appValues.String("storage_s3_bucket"),
		StorageS3Prefix:  appValues.String("storage_s3_prefix"),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		FCMProjectID:       appValues.String("fcm_project_id"),
		FCMCredentialsFile: appValues.String("fcm_credentials_file"),

		BaseURL:       appValues.String("base_url"),
		ResetTokenTTL: appValues.Duration("reset_token_ttl", time.Hour),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		JobsEnabled: appValues.Bool("jobs_enabled"),
		SweepHour:   appValues.Int("sweep_hour"),
		JobLockTTL:  appValues.Duration("job_lock_ttl", 10*time.Minute),

		SuperAdminEmail:    appValues.String("superadmin_email"),
		SuperAdminPassword: appValues.String("superadmin_password"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation. It catches bad
// values before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if len(appCfg.JWTSecret) < minSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d bytes", minSecretLen)
	}
	if len(appCfg.SessionKey) < minSecretLen {
		return fmt.Errorf("session_key must be at least %d bytes", minSecretLen)
	}
	if appCfg.JWTTTL <= 0 || appCfg.ResetTokenTTL <= 0 {
		return fmt.Errorf("jwt_ttl and reset_token_ttl must be positive")
	}
	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_local_path is required for local storage")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			return fmt.Errorf("s3 storage requires storage_s3_bucket and storage_s3_region")
		}
	default:
		return fmt.Errorf("storage_type must be 'local' or 's3', got %q", appCfg.StorageType)
	}
	if appCfg.SweepHour < 0 || appCfg.SweepHour > 23 {
		return fmt.Errorf("sweep_hour must be between 0 and 23")
	}
	if appCfg.FCMProjectID != "" && appCfg.FCMCredentialsFile == "" {
		return fmt.Errorf("fcm_project_id requires fcm_credentials_file")
	}
	return nil
}
