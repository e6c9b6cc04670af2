package listeners

import (
	"context"
	"strings"

	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/mailer"
	"go.uber.org/zap"
)

// AuthNotificationListener emails passengers and drivers about their account.
type AuthNotificationListener struct{ d Deps }

func (l *AuthNotificationListener) OnRegistered(ctx context.Context, e events.Event) error {
	ue, ok := e.(events.UserEvent)
	if !ok {
		return unexpected(e)
	}
	return l.d.Mail.Send(ctx, mailer.BuildWelcomeEmail(ue.Email, mailer.WelcomeData{
		SiteName: l.d.SiteName,
		Name:     ue.FullName,
		Role:     ue.Role,
	}))
}

func (l *AuthNotificationListener) OnResetRequested(ctx context.Context, e events.Event) error {
	ue, ok := e.(events.UserEvent)
	if !ok {
		return unexpected(e)
	}
	if ue.ResetURL == "" {
		l.d.Log.Warn("password reset event without link", zap.String("user_id", ue.UserID.Hex()))
		return nil
	}
	return l.d.Mail.Send(ctx, mailer.BuildPasswordResetEmail(ue.Email, mailer.PasswordResetData{
		SiteName:  l.d.SiteName,
		Name:      ue.FullName,
		ResetURL:  ue.ResetURL,
		ExpiresIn: l.d.ResetExpiresIn,
	}))
}

func (l *AuthNotificationListener) OnPasswordChanged(ctx context.Context, e events.Event) error {
	ue, ok := e.(events.UserEvent)
	if !ok {
		return unexpected(e)
	}
	return l.d.Mail.Send(ctx, mailer.BuildPasswordChangedEmail(ue.Email, l.d.SiteName, ue.FullName))
}

// AdminAuthNotificationListener emails administrators.
type AdminAuthNotificationListener struct{ d Deps }

func (l *AdminAuthNotificationListener) OnAdminCreated(ctx context.Context, e events.Event) error {
	ae, ok := e.(events.AdminCreatedEvent)
	if !ok {
		return unexpected(e)
	}
	return l.d.Mail.Send(ctx, mailer.BuildAdminInviteEmail(ae.Email, mailer.AdminInviteData{
		SiteName:     l.d.SiteName,
		Name:         ae.FullName,
		TempPassword: ae.TempPassword,
		LoginURL:     strings.TrimRight(l.d.BaseURL, "/") + "/admin/login",
	}))
}

func (l *AdminAuthNotificationListener) OnLoginLocked(ctx context.Context, e events.Event) error {
	le, ok := e.(events.AdminLoginLockedEvent)
	if !ok {
		return unexpected(e)
	}
	return l.d.Mail.Send(ctx, mailer.BuildSecurityAlertEmail(le.Email, l.d.SiteName, le.FullName, le.IP, le.Attempts))
}
