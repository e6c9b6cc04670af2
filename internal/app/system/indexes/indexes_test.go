package indexes_test

import (
	"testing"

	"github.com/dalemusser/ridehub/internal/app/system/indexes"
	"github.com/dalemusser/ridehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("list indexes on %s: %v", coll, err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesNamedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"users":               {"uniq_users_email", "idx_users_role_status_fullnameci_id"},
		"roles":               {"uniq_roles_nameci"},
		"rides":               {"idx_rides_passenger_created", "geo_rides_pickup", "uniq_rides_passenger_active", "uniq_rides_driver_active"},
		"driver_locations":    {"uniq_driverloc_driver", "geo_driverloc_location"},
		"ratings":             {"uniq_ratings_ride_rater", "idx_ratings_rated_created"},
		"wallets":             {"uniq_wallets_user"},
		"wallet_transactions": {"idx_wtx_wallet_status_baltype", "uniq_wtx_reference"},
		"driver_documents":    {"uniq_driverdocs_active", "uniq_driverdocs_version"},
		"vehicle_documents":   {"uniq_vehicledocs_active", "uniq_vehicledocs_version"},
		"subscriptions":       {"uniq_subs_driver_active", "idx_subs_status_end"},
		"subscription_plans":  {"uniq_plans_code"},
		"evps":                {"uniq_evps_permit", "idx_evps_status_end"},
		"withdrawal_requests": {"uniq_withdrawals_driver_pending"},
		"emergency_contacts":  {"uniq_contacts_user_phone"},
		"notifications":       {"idx_notifications_user_created"},
	}
	for coll, want := range expected {
		names := indexNames(t, db, coll)
		for _, n := range want {
			if !names[n] {
				t.Errorf("%s: expected index %q, got %v", coll, n, names)
			}
		}
	}
}

func TestEnsureAll_RatingUniqueness(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	ride, rater := primitive.NewObjectID(), primitive.NewObjectID()
	doc := bson.M{"ride_id": ride, "rater_id": rater, "stars": 5}
	if _, err := db.Collection("ratings").InsertOne(ctx, doc); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	doc2 := bson.M{"ride_id": ride, "rater_id": rater, "stars": 1}
	if _, err := db.Collection("ratings").InsertOne(ctx, doc2); !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestEnsureAll_PartialActiveDocument(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	coll := db.Collection("driver_documents")
	driver := primitive.NewObjectID()
	mk := func(version int, active bool) bson.M {
		return bson.M{"driver_id": driver, "document_type": "license", "version": version, "is_active": active}
	}

	// Any number of inactive versions may coexist.
	if _, err := coll.InsertOne(ctx, mk(1, false)); err != nil {
		t.Fatalf("insert v1: %v", err)
	}
	if _, err := coll.InsertOne(ctx, mk(2, true)); err != nil {
		t.Fatalf("insert v2: %v", err)
	}
	// A second active row for the same (driver, type) is rejected.
	if _, err := coll.InsertOne(ctx, mk(3, true)); !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error for second active doc, got %v", err)
	}
	// Reusing a version number is rejected even when inactive.
	if _, err := coll.InsertOne(ctx, mk(2, false)); !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error for repeated version, got %v", err)
	}
}
