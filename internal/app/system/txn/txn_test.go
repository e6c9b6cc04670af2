package txn

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/ridehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"generic", errors.New("connection reset"), false},
		{"code 20", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"code 51", mongo.CommandError{Code: 51}, true},
		{"code 263", mongo.CommandError{Code: 263}, true},
		{"other code", mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"}, false},
		{"replica set wording", errors.New("Transaction requires a REPLICA SET"), true},
		{"session not supported", errors.New("sessions are not supported by this deployment"), true},
		{"transaction only", errors.New("transaction aborted"), false},
		{"wrapped", errors.Join(errors.New("debit wallet"), mongo.CommandError{Code: 20}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRun_AppliesWrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := Run(ctx, db, zap.NewNop(), func(ctx context.Context) error {
		if _, err := db.Collection("a").InsertOne(ctx, bson.M{"n": 1}); err != nil {
			return err
		}
		_, err := db.Collection("b").InsertOne(ctx, bson.M{"n": 2})
		return err
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, c := range []string{"a", "b"} {
		n, err := db.Collection(c).CountDocuments(ctx, bson.M{})
		if err != nil {
			t.Fatalf("count %s: %v", c, err)
		}
		if n != 1 {
			t.Errorf("%s: got %d docs, want 1", c, n)
		}
	}
}

func TestRun_ReturnsCallbackError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	boom := errors.New("insufficient balance")
	err := Run(ctx, db, zap.NewNop(), func(ctx context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want %v", err, boom)
	}
}
