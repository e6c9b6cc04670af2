// internal/app/store/rides/ridestore.go
package ridestore

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
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrPassengerBusy means the passenger already has an active ride.
	ErrPassengerBusy = errors.New("passenger already has an active ride")
	// ErrDriverBusy means the driver already has an active ride.
	ErrDriverBusy = errors.New("driver already has an active ride")
	// ErrStatusConflict means the ride was not in the expected status.
	ErrStatusConflict = errors.New("ride status changed")
)

// Store manages rides.
type Store struct {
	docstore.Repository[models.Ride]
}

func New(db *mongo.Database) *Store {
	return &Store{Repository: docstore.NewRepository[models.Ride](db, "rides")}
}

// Create inserts a new requested ride. The partial unique index on
// (passenger_id, active) rejects a second active ride.
func (s *Store) Create(ctx context.Context, r models.Ride) (models.Ride, error) {
	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	r.Status = models.RideRequested
	r.Active = true
	r.CreatedAt, r.UpdatedAt = now, now
	if _, err := s.Insert(ctx, &r); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Ride{}, ErrPassengerBusy
		}
		return models.Ride{}, fmt.Errorf("create ride: %w", err)
	}
	return r, nil
}

// Transition moves a ride from one of from to to, applying set as well.
// match adds conditions (for example the caller must be the driver).
// It returns ErrStatusConflict when the ride exists but did not match,
// docstore.ErrNotFound when it does not exist, and ErrDriverBusy when
// assigning a driver who is already on an active ride.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, from []string, to string, match, set bson.M) (*models.Ride, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	for k, v := range match {
		filter[k] = v
	}
	upd := bson.M{
		"status":     to,
		"active":     isActiveStatus(to),
		"updated_at": time.Now().UTC(),
	}
	for k, v := range set {
		upd[k] = v
	}

	r, err := s.FindOneAndUpdate(ctx, filter, bson.M{"$set": upd})
	switch {
	case err == nil:
		return r, nil
	case errors.Is(err, docstore.ErrNotFound):
		if ok, _ := s.Exists(ctx, bson.M{"_id": id}); ok {
			return nil, ErrStatusConflict
		}
		return nil, docstore.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrDriverBusy
	}
	return nil, err
}

func isActiveStatus(status string) bool {
	for _, s := range models.ActiveRideStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// MarkSettled flags a completed ride as settled and clears any recorded
// settlement failure. It returns false when the ride was already settled.
func (s *Store) MarkSettled(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return s.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RideCompleted, "settled": bson.M{"$ne": true}},
		bson.M{
			"$set":   bson.M{"settled": true, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"settlement_error": ""},
		})
}

// MarkSettlementFailed records why settling an unsettled ride failed.
func (s *Store) MarkSettlementFailed(ctx context.Context, id primitive.ObjectID, reason string) error {
	_, err := s.UpdateOne(ctx,
		bson.M{"_id": id, "settled": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"settlement_error": reason, "updated_at": time.Now().UTC()}})
	return err
}

// Unsettled lists completed rides whose settlement failed, oldest first.
func (s *Store) Unsettled(ctx context.Context, limit int64) ([]models.Ride, error) {
	return s.Find(ctx,
		bson.M{"status": models.RideCompleted, "settled": bson.M{"$ne": true}},
		options.Find().SetSort(bson.D{{Key: "completed_at", Value: 1}}).SetLimit(limit))
}

// MarkRated records that one party has rated the ride. field is
// "passenger_rated" or "driver_rated".
func (s *Store) MarkRated(ctx context.Context, id primitive.ObjectID, field string) error {
	return s.UpdateByID(ctx, id, bson.M{"$set": bson.M{field: true}})
}

// ActiveForPassenger returns the passenger's active ride, or docstore.ErrNotFound.
func (s *Store) ActiveForPassenger(ctx context.Context, passengerID primitive.ObjectID) (*models.Ride, error) {
	return s.FindOne(ctx, bson.M{"passenger_id": passengerID, "active": true})
}

// ActiveForDriver returns the driver's active ride, or docstore.ErrNotFound.
func (s *Store) ActiveForDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ride, error) {
	return s.FindOne(ctx, bson.M{"driver_id": driverID, "active": true})
}

// ListFilter narrows ride lists.
type ListFilter struct {
	PassengerID *primitive.ObjectID
	DriverID    *primitive.ObjectID
	Status      string
	From, To    *time.Time
}

// List returns one page of rides, newest first.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) ([]models.Ride, int64, error) {
	q := bson.M{}
	if f.PassengerID != nil {
		q["passenger_id"] = *f.PassengerID
	}
	if f.DriverID != nil {
		q["driver_id"] = *f.DriverID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.From != nil || f.To != nil {
		tq := bson.M{}
		if f.From != nil {
			tq["$gte"] = *f.From
		}
		if f.To != nil {
			tq["$lt"] = *f.To
		}
		q["created_at"] = tq
	}
	return s.FindPage(ctx, q, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, p)
}

// StaleRequested returns rides still waiting for a driver since before cutoff.
func (s *Store) StaleRequested(ctx context.Context, cutoff time.Time) ([]models.Ride, error) {
	return s.Find(ctx, bson.M{"status": models.RideRequested, "created_at": bson.M{"$lt": cutoff}})
}

// CountByStatus returns the number of rides per status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cur, err := s.Collection().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("rides count by status: %w", err)
	}
	var rows []struct {
		Status string `bson:"_id"`
		N      int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("rides count by status decode: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// Revenue sums final fares and commission over completed rides.
func (s *Store) Revenue(ctx context.Context) (fares, commission float64, err error) {
	cur, err := s.Collection().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.RideCompleted}}},
		{{Key: "$group", Value: bson.M{
			"_id":        nil,
			"fares":      bson.M{"$sum": "$final_fare"},
			"commission": bson.M{"$sum": "$commission"},
		}}},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("rides revenue: %w", err)
	}
	var rows []struct {
		Fares      float64 `bson:"fares"`
		Commission float64 `bson:"commission"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, 0, fmt.Errorf("rides revenue decode: %w", err)
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Fares, rows[0].Commission, nil
}
