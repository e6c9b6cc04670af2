package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test data directly, bypassing services.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database { return f.db }

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert into %s: %v", coll, err)
	}
}

// CreateUser inserts an active user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   name,
		FullNameCI: text.Fold(name),
		Email:      email,
		Role:       role,
		Status:     models.UserStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if role == models.RoleDriver {
		u.Vehicle = &models.Vehicle{Make: "Toyota", Model: "Prius", Plate: "TEST-" + u.ID.Hex()[18:]}
	}
	f.insert(ctx, "users", u)
	return u
}

// CreatePassenger inserts an active passenger.
func (f *Fixtures) CreatePassenger(ctx context.Context, name string) models.User {
	return f.CreateUser(ctx, name, primitive.NewObjectID().Hex()+"@rider.test", models.RolePassenger)
}

// CreateDriver inserts an active driver with a vehicle.
func (f *Fixtures) CreateDriver(ctx context.Context, name string) models.User {
	return f.CreateUser(ctx, name, primitive.NewObjectID().Hex()+"@driver.test", models.RoleDriver)
}

// CreateAdmin inserts an active superadmin.
func (f *Fixtures) CreateAdmin(ctx context.Context, name string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     name,
		FullNameCI:   text.Fold(name),
		Email:        primitive.NewObjectID().Hex() + "@admin.test",
		Role:         models.RoleAdmin,
		IsSuperAdmin: true,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateRide inserts a ride between passenger and driver in the given
// status. driverID may be nil for rides that were never accepted.
func (f *Fixtures) CreateRide(ctx context.Context, passengerID primitive.ObjectID, driverID *primitive.ObjectID, status string) models.Ride {
	f.t.Helper()
	now := time.Now().UTC()
	r := models.Ride{
		ID:            primitive.NewObjectID(),
		PassengerID:   passengerID,
		DriverID:      driverID,
		Pickup:        models.Place{Point: models.NewGeoPoint(40.7128, -74.0060), Address: "City Hall"},
		Dropoff:       models.Place{Point: models.NewGeoPoint(40.7580, -73.9855), Address: "Times Square"},
		Status:        status,
		PaymentMethod: models.PaymentCash,
		DistanceKm:    5.4,
		DurationMin:   14,
		EstimatedFare: 12.5,
		Currency:      "USD",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.Active = r.IsActive()
	if status == models.RideCompleted {
		r.FinalFare = 12.5
		r.CompletedAt = &now
	}
	f.insert(ctx, "rides", r)
	return r
}

// CreateSubscription inserts a subscription for driverID.
func (f *Fixtures) CreateSubscription(ctx context.Context, driverID primitive.ObjectID, planCode, status string, endDate *time.Time) models.Subscription {
	f.t.Helper()
	now := time.Now().UTC()
	s := models.Subscription{
		ID:                    primitive.NewObjectID(),
		DriverID:              driverID,
		PlanCode:              planCode,
		PlanName:              planCode,
		Status:                status,
		StartDate:             now.AddDate(0, -1, 0),
		EndDate:               endDate,
		DailyRideRequestLimit: 10,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	f.insert(ctx, "subscriptions", s)
	return s
}

// CreateEvp inserts an EVP for driverID ending at end.
func (f *Fixtures) CreateEvp(ctx context.Context, driverID primitive.ObjectID, status string, end time.Time) models.Evp {
	f.t.Helper()
	now := time.Now().UTC()
	e := models.Evp{
		ID:           primitive.NewObjectID(),
		DriverID:     driverID,
		PermitNumber: "EVP-" + primitive.NewObjectID().Hex()[16:],
		Price:        25,
		Source:       "admin",
		Status:       status,
		StartDate:    end.AddDate(0, 0, -30),
		EndDate:      end,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "evps", e)
	return e
}
