// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for RideHub.
//
// Values come from environment variables (RIDEHUB_*), configuration files,
// or command-line flags, loaded in LoadConfig. WAFFLE's CoreConfig covers
// the framework-level settings: ports, TLS, log level, CORS and body limits.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens for the passenger and driver apps
	JWTSecret string
	JWTTTL    time.Duration

	// Admin console cookie
	SessionKey    string // signs session cookies and password reset tokens
	SessionName   string
	SessionDomain string

	// Document storage
	StorageType      string // "local" or "s3"
	StorageLocalPath string
	StorageLocalURL  string
	StorageS3Region  string
	StorageS3Bucket  string
	StorageS3Prefix  string

	// Email/SMTP
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Push notifications; empty project id disables FCM
	FCMProjectID       string
	FCMCredentialsFile string

	// Base URL for links in emails
	BaseURL       string
	ResetTokenTTL time.Duration

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Background jobs
	JobsEnabled bool
	SweepHour   int // UTC hour of the daily expiration sweeps
	JobLockTTL  time.Duration

	// SuperAdmin bootstrap
	SuperAdminEmail    string
	SuperAdminPassword string
}
