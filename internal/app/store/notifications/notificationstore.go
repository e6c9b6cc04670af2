// internal/app/store/notifications/notificationstore.go
package notificationstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store manages in-app notifications.
type Store struct {
	docstore.Repository[models.Notification]
}

func New(db *mongo.Database) *Store {
	return &Store{Repository: docstore.NewRepository[models.Notification](db, "notifications")}
}

// Create inserts an unread notification.
func (s *Store) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	n.ID = primitive.NewObjectID()
	n.Read = false
	n.CreatedAt = time.Now().UTC()
	if _, err := s.Insert(ctx, &n); err != nil {
		return models.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// List returns one page of the user's notifications, newest first.
func (s *Store) List(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, p paging.Params) ([]models.Notification, int64, error) {
	q := bson.M{"user_id": userID}
	if unreadOnly {
		q["read"] = false
	}
	return s.FindPage(ctx, q, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, p)
}

// UnreadCount counts the user's unread notifications.
func (s *Store) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.Count(ctx, bson.M{"user_id": userID, "read": false})
}

// MarkRead marks one of the user's notifications read.
func (s *Store) MarkRead(ctx context.Context, userID, id primitive.ObjectID) error {
	_, err := s.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"read": true, "read_at": time.Now().UTC()}})
	return err
}

// MarkAllRead marks every unread notification of the user read and
// returns how many changed.
func (s *Store) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": time.Now().UTC()}})
}
