// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/ridehub/internal/app/store/audit"
	"github.com/dalemusser/ridehub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, password).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for admin actions (user status, roles, settings, reviews).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func requestInfo(r *http.Request) (ip, ua string) {
	if r == nil {
		return "", ""
	}
	return ratelimit.ClientIP(r), r.UserAgent()
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login on the given surface ("app" or "admin").
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, surface string) {
	ip, ua := requestInfo(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
		Details:   map[string]string{"surface": surface},
	})
}

// LoginFailed logs a rejected login. userID is nil when no account matched.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, email, reason string) {
	ip, ua := requestInfo(r)
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		IP:            ip,
		UserAgent:     ua,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// Logout logs an admin console sign-out. Accepts the principal's string id.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	ip, ua := requestInfo(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
	})
}

// Auth logs a successful self-service account event such as registration
// or a password change.
func (l *Logger) Auth(ctx context.Context, r *http.Request, eventType string, userID primitive.ObjectID) {
	ip, ua := requestInfo(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		UserID:    &userID,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
	})
}

// --- Admin Events ---

// Admin logs an action performed by actorID. userID is the affected
// account, if any.
func (l *Logger) Admin(ctx context.Context, r *http.Request, eventType string, actorID primitive.ObjectID, userID *primitive.ObjectID, details map[string]string) {
	ip, ua := requestInfo(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		UserID:    userID,
		ActorID:   &actorID,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
		Details:   details,
	})
}
