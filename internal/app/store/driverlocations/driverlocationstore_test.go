package driverlocationstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	driverlocationstore "github.com/dalemusser/ridehub/internal/app/store/driverlocations"
	"github.com/dalemusser/ridehub/internal/app/system/indexes"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/ridehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_NearbyOnlyOnlineAndFree(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := driverlocationstore.New(db)

	near, far, offline, busy := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	put := func(id primitive.ObjectID, lat, lng float64, online bool) {
		t.Helper()
		if _, err := store.Update(ctx, id, models.NewGeoPoint(lat, lng), 0); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if _, err := store.SetOnline(ctx, id, online); err != nil {
			t.Fatalf("SetOnline: %v", err)
		}
	}
	put(near, 40.7130, -74.0062, true)
	put(far, 41.5000, -74.0000, true) // ~88 km away
	put(offline, 40.7129, -74.0061, false)
	put(busy, 40.7131, -74.0059, true)
	if err := store.SetOnRide(ctx, busy, true); err != nil {
		t.Fatalf("SetOnRide: %v", err)
	}

	got, err := store.Nearby(ctx, models.NewGeoPoint(40.7128, -74.0060), 5, time.Now().Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(got) != 1 || got[0].DriverID != near {
		t.Fatalf("expected only the near online driver, got %+v", got)
	}
}

func TestStore_SetOnlineRequiresPosition(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := driverlocationstore.New(db)

	if _, err := store.SetOnline(ctx, primitive.NewObjectID(), true); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
