// internal/app/store/evps/evpstore.go
package evpstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrDuplicatePermit = errors.New("permit number already issued")
	ErrNotActive       = errors.New("permit is not active")
)

// Store manages electronic vehicle permits.
type Store struct {
	docstore.Repository[models.Evp]
}

func New(db *mongo.Database) *Store {
	return &Store{Repository: docstore.NewRepository[models.Evp](db, "evps")}
}

// Create inserts an active permit.
func (s *Store) Create(ctx context.Context, e models.Evp) (models.Evp, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.Status = models.EvpActive
	e.CreatedAt, e.UpdatedAt = now, now
	if _, err := s.Insert(ctx, &e); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Evp{}, ErrDuplicatePermit
		}
		return models.Evp{}, fmt.Errorf("create evp: %w", err)
	}
	return e, nil
}

// Current returns the driver's active permit that has not yet ended, or
// docstore.ErrNotFound.
func (s *Store) Current(ctx context.Context, driverID primitive.ObjectID, now time.Time) (*models.Evp, error) {
	return s.FindOne(ctx, bson.M{
		"driver_id": driverID,
		"status":    models.EvpActive,
		"end_date":  bson.M{"$gt": now},
	})
}

// ListFilter narrows permit lists.
type ListFilter struct {
	DriverID *primitive.ObjectID
	Status   string
}

// List returns one page of permits, newest first.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) ([]models.Evp, int64, error) {
	q := bson.M{}
	if f.DriverID != nil {
		q["driver_id"] = *f.DriverID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	return s.FindPage(ctx, q, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, p)
}

// Revoke ends an active permit early.
func (s *Store) Revoke(ctx context.Context, id primitive.ObjectID, reason string) (*models.Evp, error) {
	e, err := s.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.EvpActive},
		bson.M{"$set": bson.M{
			"status":        models.EvpRevoked,
			"revoke_reason": reason,
			"updated_at":    time.Now().UTC(),
		}})
	if errors.Is(err, docstore.ErrNotFound) {
		if ok, _ := s.Exists(ctx, bson.M{"_id": id}); ok {
			return nil, ErrNotActive
		}
	}
	return e, err
}

// MarkExpired moves an active permit to expired, returning false if it
// was no longer active.
func (s *Store) MarkExpired(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	return s.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.EvpActive},
		bson.M{"$set": bson.M{"status": models.EvpExpired, "expired_at": at, "updated_at": at}})
}

// ExpiringBetween lists active permits ending in (from, to].
func (s *Store) ExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Evp, error) {
	return s.Find(ctx, bson.M{"status": models.EvpActive, "end_date": bson.M{"$gt": from, "$lte": to}})
}

// ExpiredAt lists active permits whose end date is at or before now.
func (s *Store) ExpiredAt(ctx context.Context, now time.Time) ([]models.Evp, error) {
	return s.Find(ctx, bson.M{"status": models.EvpActive, "end_date": bson.M{"$lte": now}})
}
