// internal/app/store/driverlocations/driverlocationstore.go
package driverlocationstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store keeps one last-known position per driver.
type Store struct {
	docstore.Repository[models.DriverLocation]
}

func New(db *mongo.Database) *Store {
	return &Store{Repository: docstore.NewRepository[models.DriverLocation](db, "driver_locations")}
}

// Update upserts the driver's position and returns the stored row.
func (s *Store) Update(ctx context.Context, driverID primitive.ObjectID, pt models.GeoPoint, heading float64) (*models.DriverLocation, error) {
	var out models.DriverLocation
	err := s.Collection().FindOneAndUpdate(ctx,
		bson.M{"driver_id": driverID},
		bson.M{
			"$set": bson.M{
				"location":   pt,
				"heading":    heading,
				"updated_at": time.Now().UTC(),
			},
			"$setOnInsert": bson.M{"online": false, "on_ride": false},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("update driver location: %w", err)
	}
	return &out, nil
}

// SetOnline marks the driver available (or not) for new requests.
// It returns docstore.ErrNotFound until the driver has reported a position.
func (s *Store) SetOnline(ctx context.Context, driverID primitive.ObjectID, online bool) (*models.DriverLocation, error) {
	return s.FindOneAndUpdate(ctx,
		bson.M{"driver_id": driverID},
		bson.M{"$set": bson.M{"online": online, "updated_at": time.Now().UTC()}})
}

// SetOnRide flags whether the driver is occupied. Missing rows are ignored.
func (s *Store) SetOnRide(ctx context.Context, driverID primitive.ObjectID, onRide bool) error {
	_, err := s.UpdateOne(ctx, bson.M{"driver_id": driverID}, bson.M{"$set": bson.M{"on_ride": onRide}})
	return err
}

// Get returns the driver's last position.
func (s *Store) Get(ctx context.Context, driverID primitive.ObjectID) (*models.DriverLocation, error) {
	return s.FindOne(ctx, bson.M{"driver_id": driverID})
}

// Nearby returns online, unoccupied drivers within radiusKm of pt, nearest
// first, whose position was reported after freshSince.
func (s *Store) Nearby(ctx context.Context, pt models.GeoPoint, radiusKm float64, freshSince time.Time, limit int64) ([]models.DriverLocation, error) {
	return s.Find(ctx, bson.M{
		"location": bson.M{"$near": bson.M{
			"$geometry":    pt,
			"$maxDistance": radiusKm * 1000,
		}},
		"online":     true,
		"on_ride":    false,
		"updated_at": bson.M{"$gte": freshSince},
	}, options.Find().SetLimit(limit))
}
