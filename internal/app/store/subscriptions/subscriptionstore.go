// internal/app/store/subscriptions/subscriptionstore.go
package subscriptionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DayLayout formats the UTC calendar day stored in LastRideRequestDate.
const DayLayout = "2006-01-02"

var (
	ErrDuplicatePlanCode = errors.New("a plan with this code already exists")
	// ErrActiveExists means the driver already has an active subscription.
	ErrActiveExists = errors.New("driver already has an active subscription")
	// ErrDailyLimitReached means today's ride-request allowance is used up.
	ErrDailyLimitReached = errors.New("daily ride request limit reached")
)

// Store manages subscription plans and driver subscriptions.
type Store struct {
	plans docstore.Repository[models.SubscriptionPlan]
	subs  docstore.Repository[models.Subscription]
}

func New(db *mongo.Database) *Store {
	return &Store{
		plans: docstore.NewRepository[models.SubscriptionPlan](db, "subscription_plans"),
		subs:  docstore.NewRepository[models.Subscription](db, "subscriptions"),
	}
}

/*───────────────────────────────────────────────────────────────────────────*
| Plans                                                                      |
*───────────────────────────────────────────────────────────────────────────*/

// CreatePlan inserts a plan.
func (s *Store) CreatePlan(ctx context.Context, p models.SubscriptionPlan) (models.SubscriptionPlan, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.CreatedAt, p.UpdatedAt = now, now
	if _, err := s.plans.Insert(ctx, &p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.SubscriptionPlan{}, ErrDuplicatePlanCode
		}
		return models.SubscriptionPlan{}, fmt.Errorf("create plan: %w", err)
	}
	return p, nil
}

// UpdatePlan overwrites the editable plan fields. The code is immutable.
func (s *Store) UpdatePlan(ctx context.Context, p models.SubscriptionPlan) (*models.SubscriptionPlan, error) {
	return s.plans.FindOneAndUpdate(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"name":                p.Name,
		"description":         p.Description,
		"price":               p.Price,
		"duration_days":       p.DurationDays,
		"daily_ride_requests": p.DailyRideRequests,
		"is_active":           p.IsActive,
		"updated_at":          time.Now().UTC(),
	}})
}

// DeletePlan removes a plan. Existing subscriptions keep their copied fields.
func (s *Store) DeletePlan(ctx context.Context, id primitive.ObjectID) error {
	return s.plans.DeleteByID(ctx, id)
}

// PlanByID loads a plan.
func (s *Store) PlanByID(ctx context.Context, id primitive.ObjectID) (*models.SubscriptionPlan, error) {
	return s.plans.FindByID(ctx, id)
}

// PlanByCode loads a plan by its code.
func (s *Store) PlanByCode(ctx context.Context, code string) (*models.SubscriptionPlan, error) {
	return s.plans.FindOne(ctx, bson.M{"code": code})
}

// ListPlans returns plans sorted by price. activeOnly hides retired plans.
func (s *Store) ListPlans(ctx context.Context, activeOnly bool) ([]models.SubscriptionPlan, error) {
	q := bson.M{}
	if activeOnly {
		q["is_active"] = true
	}
	return s.plans.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "price", Value: 1}, {Key: "code", Value: 1}}))
}

/*───────────────────────────────────────────────────────────────────────────*
| Subscriptions                                                              |
*───────────────────────────────────────────────────────────────────────────*/

// Active returns the driver's active subscription, or docstore.ErrNotFound.
func (s *Store) Active(ctx context.Context, driverID primitive.ObjectID) (*models.Subscription, error) {
	return s.subs.FindOne(ctx, bson.M{"driver_id": driverID, "status": models.SubscriptionActive})
}

// Get loads a subscription by id.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error) {
	return s.subs.FindByID(ctx, id)
}

// CreateActive inserts sub as the driver's active subscription. The partial
// unique index on active subscriptions rejects a second one.
func (s *Store) CreateActive(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	now := time.Now().UTC()
	sub.ID = primitive.NewObjectID()
	sub.Status = models.SubscriptionActive
	sub.CreatedAt, sub.UpdatedAt = now, now
	if _, err := s.subs.Insert(ctx, &sub); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Subscription{}, ErrActiveExists
		}
		return models.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

// ListForDriver returns the driver's subscriptions, newest first.
func (s *Store) ListForDriver(ctx context.Context, driverID primitive.ObjectID) ([]models.Subscription, error) {
	return s.subs.Find(ctx, bson.M{"driver_id": driverID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// End moves an active subscription to status (expired or cancelled).
// It returns false when the subscription was no longer active, which makes
// repeated sweeps no-ops.
func (s *Store) End(ctx context.Context, id primitive.ObjectID, status string, at time.Time) (bool, error) {
	field := "expired_at"
	if status == models.SubscriptionCancelled {
		field = "cancelled_at"
	}
	return s.subs.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.SubscriptionActive},
		bson.M{"$set": bson.M{"status": status, field: at, "updated_at": at}})
}

// ExpiringBetween lists active subscriptions ending in (from, to].
func (s *Store) ExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	return s.subs.Find(ctx, bson.M{
		"status":   models.SubscriptionActive,
		"end_date": bson.M{"$gt": from, "$lte": to},
	})
}

// ExpiredAt lists active subscriptions whose end date is at or before now.
func (s *Store) ExpiredAt(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	return s.subs.Find(ctx, bson.M{
		"status":   models.SubscriptionActive,
		"end_date": bson.M{"$lte": now},
	})
}

// CountActivePaid counts active subscriptions on paid plans.
func (s *Store) CountActivePaid(ctx context.Context) (int64, error) {
	return s.subs.Count(ctx, bson.M{"status": models.SubscriptionActive, "plan_code": bson.M{"$ne": models.PlanFree}})
}

// IncrementDailyRideRequests consumes one ride request from today's
// allowance of subscription id and returns the updated subscription.
//
// Same day: the counter is incremented only while below the limit (a limit
// of 0 is unlimited). New day: the counter is reset to 1. Both steps are
// conditional updates, so concurrent accepts cannot exceed the limit.
func (s *Store) IncrementDailyRideRequests(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.Subscription, error) {
	today := now.UTC().Format(DayLayout)

	sub, err := s.subs.FindOneAndUpdate(ctx,
		bson.M{
			"_id":                    id,
			"status":                 models.SubscriptionActive,
			"last_ride_request_date": today,
			"$or": bson.A{
				bson.M{"daily_ride_request_limit": 0},
				bson.M{"$expr": bson.M{"$lt": bson.A{"$daily_ride_requests", "$daily_ride_request_limit"}}},
			},
		},
		bson.M{
			"$inc": bson.M{"daily_ride_requests": 1},
			"$set": bson.M{"updated_at": now},
		})
	if err == nil || !errors.Is(err, docstore.ErrNotFound) {
		return sub, err
	}

	sub, err = s.subs.FindOneAndUpdate(ctx,
		bson.M{
			"_id":                    id,
			"status":                 models.SubscriptionActive,
			"last_ride_request_date": bson.M{"$ne": today},
		},
		bson.M{"$set": bson.M{
			"daily_ride_requests":    1,
			"last_ride_request_date": today,
			"updated_at":             now,
		}})
	if errors.Is(err, docstore.ErrNotFound) {
		if ok, _ := s.subs.Exists(ctx, bson.M{"_id": id, "status": models.SubscriptionActive}); ok {
			return nil, ErrDailyLimitReached
		}
	}
	return sub, err
}

// ReleaseDailyRideRequest gives back one request consumed today, for an
// accept that failed after the allowance was taken.
func (s *Store) ReleaseDailyRideRequest(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	_, err := s.subs.UpdateOne(ctx,
		bson.M{
			"_id":                    id,
			"last_ride_request_date": now.UTC().Format(DayLayout),
			"daily_ride_requests":    bson.M{"$gt": 0},
		},
		bson.M{"$inc": bson.M{"daily_ride_requests": -1}})
	return err
}
