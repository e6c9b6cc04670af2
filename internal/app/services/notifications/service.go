// Package notificationsvc writes in-app notifications and fans them out to
// device push. Delivery is best-effort: push failures are logged and
// counted, never returned to the caller.
package notificationsvc

import (
	"context"

	notificationstore "github.com/dalemusser/ridehub/internal/app/store/notifications"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	"github.com/dalemusser/ridehub/internal/app/system/metrics"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/push"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Notification types.
const (
	TypeRide         = "ride"
	TypeRating       = "rating"
	TypeDocument     = "document"
	TypeWithdrawal   = "withdrawal"
	TypeSubscription = "subscription"
	TypeEvp          = "evp"
	TypeAccount      = "account"
)

type Service struct {
	store   *notificationstore.Store
	users   *userstore.Store
	push    push.Sender
	metrics *metrics.Metrics
	log     *zap.Logger
}

func New(store *notificationstore.Store, users *userstore.Store, sender push.Sender, m *metrics.Metrics, logger *zap.Logger) *Service {
	if sender == nil {
		sender = push.Nop{Log: logger}
	}
	return &Service{store: store, users: users, push: sender, metrics: m, log: logger}
}

// Notice is one message for one user.
type Notice struct {
	UserID primitive.ObjectID
	Type   string
	Title  string
	Body   string
	Data   map[string]string
	// InboxOnly skips device push.
	InboxOnly bool
}

// Notify stores n in the user's inbox and pushes it to their devices.
// Only the inbox write can fail the call.
func (s *Service) Notify(ctx context.Context, n Notice) (models.Notification, error) {
	saved, err := s.store.Create(ctx, models.Notification{
		UserID: n.UserID,
		Type:   n.Type,
		Title:  n.Title,
		Body:   n.Body,
		Data:   n.Data,
	})
	if err != nil {
		s.metrics.NotificationFailed("inbox")
		return models.Notification{}, err
	}
	if !n.InboxOnly {
		s.Push(ctx, []primitive.ObjectID{n.UserID}, push.Message{Title: n.Title, Body: n.Body, Data: n.Data})
	}
	return saved, nil
}

// Push sends msg to every device of the given users without an inbox entry.
func (s *Service) Push(ctx context.Context, userIDs []primitive.ObjectID, msg push.Message) {
	var tokens []string
	for _, id := range userIDs {
		u, err := s.users.FindByID(ctx, id)
		if err != nil {
			s.log.Warn("push: load user failed", zap.String("user_id", id.Hex()), zap.Error(err))
			continue
		}
		tokens = append(tokens, u.DeviceTokens...)
	}
	if len(tokens) == 0 {
		return
	}

	res, err := s.push.Send(ctx, tokens, msg)
	if err != nil {
		s.metrics.NotificationFailed("push")
		s.log.Warn("push send failed", zap.Int("tokens", len(tokens)), zap.Error(err))
		return
	}
	for i := 0; i < res.Failed; i++ {
		s.metrics.NotificationFailed("push")
	}
	for _, tok := range res.Invalid {
		if err := s.users.PruneDeviceToken(ctx, tok); err != nil {
			s.log.Warn("prune device token failed", zap.Error(err))
		}
	}
}

// List returns one page of a user's inbox, newest first.
func (s *Service) List(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, p paging.Params) (paging.Page[models.Notification], error) {
	rows, total, err := s.store.List(ctx, userID, unreadOnly, p)
	if err != nil {
		return paging.Page[models.Notification]{}, err
	}
	return paging.NewPage(rows, total, p), nil
}

func (s *Service) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.store.UnreadCount(ctx, userID)
}

// MarkRead marks one notification owned by userID as read.
func (s *Service) MarkRead(ctx context.Context, userID, id primitive.ObjectID) error {
	return s.store.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}
