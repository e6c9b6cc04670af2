package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/ridehub/internal/app/system/validators"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/ridehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	require.NoError(t, validators.EnsureAll(ctx, db, zap.NewNop()))
	// Second run is a no-op.
	require.NoError(t, validators.EnsureAll(ctx, db, zap.NewNop()))

	names, err := db.ListCollectionNames(ctx, bson.M{})
	require.NoError(t, err)
	for _, want := range validators.Collections {
		assert.Contains(t, names, want)
	}
}

func TestEnsureAll_RejectsInvalidRating(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	require.NoError(t, validators.EnsureAll(ctx, db, zap.NewNop()))

	rating := models.Rating{
		RideID:    primitive.NewObjectID(),
		RaterID:   primitive.NewObjectID(),
		RatedID:   primitive.NewObjectID(),
		RaterRole: models.RaterPassenger,
		Stars:     5,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.Collection("ratings").InsertOne(ctx, rating)
	require.NoError(t, err)

	rating.Stars = 9
	_, err = db.Collection("ratings").InsertOne(ctx, rating)
	assert.Error(t, err, "stars above 5 should fail validation")
}

func TestEnsureAll_RejectsUnknownRideStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	require.NoError(t, validators.EnsureAll(ctx, db, zap.NewNop()))

	ride := models.Ride{
		PassengerID:   primitive.NewObjectID(),
		Status:        models.RideRequested,
		PaymentMethod: models.PaymentCash,
		Currency:      "USD",
		CreatedAt:     time.Now().UTC(),
	}
	_, err := db.Collection("rides").InsertOne(ctx, ride)
	require.NoError(t, err)

	ride.Status = "teleported"
	_, err = db.Collection("rides").InsertOne(ctx, ride)
	assert.Error(t, err)
}
