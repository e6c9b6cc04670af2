// Package listeners turns domain events into email, push and in-app
// notifications. Every handler is best-effort: the bus logs a returned
// error and nothing upstream waits on delivery.
package listeners

import (
	"context"
	"fmt"

	notificationsvc "github.com/dalemusser/ridehub/internal/app/services/notifications"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/mailer"
	"github.com/dalemusser/ridehub/internal/app/system/push"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Notifier is the notification service surface the listeners use.
type Notifier interface {
	Notify(ctx context.Context, n notificationsvc.Notice) (models.Notification, error)
	Push(ctx context.Context, userIDs []primitive.ObjectID, msg push.Message)
}

// UserLookup resolves recipients.
type UserLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Deps is shared by every listener.
type Deps struct {
	Mail     mailer.Sender
	Notify   Notifier
	Users    UserLookup
	SiteName string
	// BaseURL prefixes links in emails, e.g. the admin sign-in page.
	BaseURL string
	// ResetExpiresIn is shown in password reset emails.
	ResetExpiresIn string
	Log            *zap.Logger
}

// Register subscribes all listeners to bus.
func Register(bus *events.Bus, d Deps) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.SiteName == "" {
		d.SiteName = "RideHub"
	}
	if d.ResetExpiresIn == "" {
		d.ResetExpiresIn = "1 hour"
	}

	a := &AuthNotificationListener{d: d}
	bus.Subscribe(events.UserRegistered, "auth.welcome", a.OnRegistered)
	bus.Subscribe(events.UserPasswordResetRequest, "auth.reset", a.OnResetRequested)
	bus.Subscribe(events.UserPasswordChanged, "auth.password_changed", a.OnPasswordChanged)

	aa := &AdminAuthNotificationListener{d: d}
	bus.Subscribe(events.AdminCreated, "admin.invite", aa.OnAdminCreated)
	bus.Subscribe(events.AdminLoginFailedLocked, "admin.security_alert", aa.OnLoginLocked)

	ev := &EvpExpirationListener{d: d}
	bus.Subscribe(events.EvpExpiring, "evp.expiring", ev.Handle)
	bus.Subscribe(events.EvpExpired, "evp.expired", ev.Handle)

	sub := &SubscriptionExpirationListener{d: d}
	bus.Subscribe(events.SubscriptionExpiring, "subscription.expiring", sub.Handle)
	bus.Subscribe(events.SubscriptionExpired, "subscription.expired", sub.Handle)

	r := &RideNotificationListener{d: d}
	bus.Subscribe(events.RideRequested, "ride.requested", r.OnRequested)
	bus.Subscribe(events.RideStatusChanged, "ride.status", r.OnStatusChanged)
	bus.Subscribe(events.DocumentReviewed, "document.reviewed", r.OnDocumentReviewed)
	bus.Subscribe(events.WithdrawalProcessed, "withdrawal.processed", r.OnWithdrawalProcessed)
}

func unexpected(e events.Event) error {
	return fmt.Errorf("listeners: unexpected payload %T on %s", e, e.Topic())
}
