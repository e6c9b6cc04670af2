package listeners

import (
	"context"
	"fmt"

	notificationsvc "github.com/dalemusser/ridehub/internal/app/services/notifications"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/mailer"
	"go.uber.org/zap"
)

const dateLayout = "Jan 2, 2006"

// EvpExpirationListener tells drivers their permit is lapsing, in the app
// and by email.
type EvpExpirationListener struct{ d Deps }

func (l *EvpExpirationListener) Handle(ctx context.Context, e events.Event) error {
	xe, ok := e.(events.ExpiryEvent)
	if !ok {
		return unexpected(e)
	}
	what := "electronic vehicle permit " + xe.Label
	if err := notifyExpiry(ctx, l.d, notificationsvc.TypeEvp, what, xe); err != nil {
		return err
	}

	u, err := l.d.Users.FindByID(ctx, xe.DriverID)
	if err != nil {
		return fmt.Errorf("evp expiry email: load driver: %w", err)
	}
	return l.d.Mail.Send(ctx, mailer.BuildExpiryEmail(u.Email, mailer.ExpiryData{
		SiteName: l.d.SiteName,
		Name:     u.FullName,
		What:     what,
		EndDate:  xe.EndDate.UTC().Format(dateLayout),
		Expired:  xe.Expired(),
	}))
}

// SubscriptionExpirationListener tells drivers their plan is lapsing.
type SubscriptionExpirationListener struct{ d Deps }

func (l *SubscriptionExpirationListener) Handle(ctx context.Context, e events.Event) error {
	xe, ok := e.(events.ExpiryEvent)
	if !ok {
		return unexpected(e)
	}
	return notifyExpiry(ctx, l.d, notificationsvc.TypeSubscription, xe.Label+" subscription", xe)
}

// notifyExpiry writes the inbox entry and pushes it.
func notifyExpiry(ctx context.Context, d Deps, typ, what string, xe events.ExpiryEvent) error {
	title := "Expiring soon"
	body := fmt.Sprintf("Your %s expires on %s.", what, xe.EndDate.UTC().Format(dateLayout))
	if xe.Expired() {
		title = "Expired"
		body = fmt.Sprintf("Your %s has expired.", what)
	}
	_, err := d.Notify.Notify(ctx, notificationsvc.Notice{
		UserID: xe.DriverID,
		Type:   typ,
		Title:  title,
		Body:   body,
		Data:   map[string]string{"id": xe.ItemID.Hex(), "event": xe.Name},
	})
	if err != nil {
		d.Log.Warn("expiry notification failed", zap.String("driver_id", xe.DriverID.Hex()), zap.Error(err))
	}
	return err
}
