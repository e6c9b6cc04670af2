package listeners

import (
	"context"
	"fmt"
	"strings"

	notificationsvc "github.com/dalemusser/ridehub/internal/app/services/notifications"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/push"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideNotificationListener keeps passengers and drivers informed about
// rides, document reviews and payouts.
type RideNotificationListener struct{ d Deps }

// OnRequested alerts candidate drivers. No inbox entry is written because
// the offer is gone once another driver accepts.
func (l *RideNotificationListener) OnRequested(ctx context.Context, e events.Event) error {
	re, ok := e.(events.RideRequestedEvent)
	if !ok {
		return unexpected(e)
	}
	body := fmt.Sprintf("Estimated fare %.2f %s", re.EstimatedFare, re.Currency)
	if re.PickupAddress != "" {
		body = fmt.Sprintf("Pickup at %s. %s", re.PickupAddress, body)
	}
	l.d.Notify.Push(ctx, re.DriverIDs, push.Message{
		Title: "New ride request",
		Body:  body,
		Data:  map[string]string{"ride_id": re.RideID.Hex(), "event": re.Topic()},
	})
	return nil
}

// statusText is what the other party reads after a transition.
var statusText = map[string]struct{ title, body string }{
	models.RideDriverAccepted: {"Driver on the way", "A driver accepted your ride."},
	models.RideDriverArrived:  {"Driver arrived", "Your driver is waiting at the pickup point."},
	models.RideStarted:        {"Ride started", "Enjoy your trip."},
	models.RideCompleted:      {"Ride completed", "Thanks for riding. You can now rate your trip."},
	models.RideCancelled:      {"Ride cancelled", "The ride was cancelled."},
}

// OnStatusChanged notifies whoever did not cause the change.
func (l *RideNotificationListener) OnStatusChanged(ctx context.Context, e events.Event) error {
	se, ok := e.(events.RideStatusEvent)
	if !ok {
		return unexpected(e)
	}
	txt, ok := statusText[se.To]
	if !ok {
		return nil
	}

	var recipients []primitive.ObjectID
	switch se.Actor {
	case "passenger":
		if se.DriverID != nil {
			recipients = append(recipients, *se.DriverID)
		}
	case "driver":
		recipients = append(recipients, se.PassengerID)
	default:
		recipients = append(recipients, se.PassengerID)
		if se.DriverID != nil {
			recipients = append(recipients, *se.DriverID)
		}
	}
	if se.To == models.RideCancelled && se.Actor == "system" {
		txt.body = "No driver accepted your ride. Please try again."
	}

	var firstErr error
	for _, id := range recipients {
		_, err := l.d.Notify.Notify(ctx, notificationsvc.Notice{
			UserID: id,
			Type:   notificationsvc.TypeRide,
			Title:  txt.title,
			Body:   txt.body,
			Data:   map[string]string{"ride_id": se.RideID.Hex(), "status": se.To},
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *RideNotificationListener) OnDocumentReviewed(ctx context.Context, e events.Event) error {
	de, ok := e.(events.DocumentReviewedEvent)
	if !ok {
		return unexpected(e)
	}
	title := "Document approved"
	body := fmt.Sprintf("Your %s was approved.", humanize(de.DocumentType))
	if de.Status == models.DocRejected {
		title = "Document rejected"
		body = fmt.Sprintf("Your %s was rejected: %s", humanize(de.DocumentType), de.Reason)
	}
	_, err := l.d.Notify.Notify(ctx, notificationsvc.Notice{
		UserID: de.DriverID,
		Type:   notificationsvc.TypeDocument,
		Title:  title,
		Body:   body,
		Data:   map[string]string{"document_id": de.DocumentID.Hex(), "status": de.Status},
	})
	return err
}

func (l *RideNotificationListener) OnWithdrawalProcessed(ctx context.Context, e events.Event) error {
	we, ok := e.(events.WithdrawalProcessedEvent)
	if !ok {
		return unexpected(e)
	}
	title := "Withdrawal approved"
	body := fmt.Sprintf("Your withdrawal of %.2f is on its way.", we.Amount)
	if we.Status == models.WithdrawalRejected {
		title = "Withdrawal rejected"
		body = fmt.Sprintf("Your withdrawal of %.2f was rejected: %s", we.Amount, we.Reason)
	}
	_, err := l.d.Notify.Notify(ctx, notificationsvc.Notice{
		UserID: we.DriverID,
		Type:   notificationsvc.TypeWithdrawal,
		Title:  title,
		Body:   body,
		Data:   map[string]string{"withdrawal_id": we.WithdrawalID.Hex(), "status": we.Status},
	})
	return err
}

func humanize(docType string) string { return strings.ReplaceAll(docType, "_", " ") }
