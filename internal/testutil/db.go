// Package testutil provides helpers shared by package tests: a throwaway
// MongoDB database per test, fixtures, and request builders.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultTestMongoURI is used when RIDEHUB_TEST_MONGO_URI is unset.
const DefaultTestMongoURI = "mongodb://localhost:27017"

// SetupTestDB connects to the test MongoDB and returns a database with a
// unique name that is dropped when the test ends. The test is skipped, not
// failed, when no server is reachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("RIDEHUB_TEST_MONGO_URI")
	if uri == "" {
		uri = DefaultTestMongoURI
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		t.Skipf("mongo not available (%s): %v", uri, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("mongo not reachable (%s): %v", uri, err)
	}

	name := "ridehub_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	db := client.Database(name)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

// TestContext returns a context bounded for a single test's DB work.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
