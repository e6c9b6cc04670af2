// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called from the schema step at startup. Each ensure* function
is idempotent. Errors are aggregated so every problem is visible and startup
can fail fast.

Several uniqueness rules of the domain live here rather than in code:
one rating per (ride, rater), one active document per (driver, type), one
active subscription per driver, one pending withdrawal per driver, one
active ride per passenger and per driver.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"roles", ensureRoles},
		{"rides", ensureRides},
		{"driver_locations", ensureDriverLocations},
		{"ratings", ensureRatings},
		{"wallets", ensureWallets},
		{"wallet_transactions", ensureWalletTransactions},
		{"driver_documents", ensureDocuments("driver_documents")},
		{"vehicle_documents", ensureDocuments("vehicle_documents")},
		{"subscriptions", ensureSubscriptions},
		{"subscription_plans", ensurePlans},
		{"evps", ensureEvps},
		{"bank_accounts", ensureBankAccounts},
		{"withdrawal_requests", ensureWithdrawals},
		{"emergency_contacts", ensureEmergencyContacts},
		{"notifications", ensureNotifications},
	}

	var problems []string
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isTrue(b *bool) bool { return b != nil && *b }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		// Collection may not exist yet; nothing to reconcile against.
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// recreate drops ex and creates m in its place.
func recreate(ctx context.Context, coll *mongo.Collection, ex existingIndex, m mongo.IndexModel) error {
	if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
		return fmt.Errorf("drop %s failed: %w", ex.Name, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		return err
	}
	return nil
}

func describeCreateErr(coll *mongo.Collection, name string, unique bool, err error) string {
	if unique && isDuplicateKeyErr(err) {
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", isTrue(unique)),
		}

		existing := listExisting(ctx, coll)
		if ex, ok := existing[sig]; ok {
			switch {
			case isTrue(unique) == isTrue(ex.Unique) && (name == "" || ex.Name == name):
				zap.L().Debug("reusing existing index", fields...)
			case isTrue(unique) == isTrue(ex.Unique):
				// Same keys and options, different name: align the name.
				if err := recreate(ctx, coll, ex, m); err != nil {
					errs = append(errs, describeCreateErr(coll, name, isTrue(unique), err))
					continue
				}
				zap.L().Info("index renamed", append(fields, zap.String("from", ex.Name), zap.Duration("took", time.Since(start)))...)
			default:
				// Uniqueness changed (e.g. upgrading to unique): drop and recreate.
				if err := recreate(ctx, coll, ex, m); err != nil {
					errs = append(errs, describeCreateErr(coll, name, isTrue(unique), err))
					continue
				}
				zap.L().Info("index dropped and recreated", append(fields, zap.Duration("took", time.Since(start)))...)
			}
			continue
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil && isOptionsConflictErr(err) {
			// Raced with another instance or a differently named twin appeared.
			if ex, ok := listExisting(ctx, coll)[sig]; ok {
				if isTrue(unique) == isTrue(ex.Unique) {
					zap.L().Info("reusing existing index (post-conflict)", fields...)
					continue
				}
				err = recreate(ctx, coll, ex, m)
			}
		}
		if err != nil {
			zap.L().Warn("index ensure failed", append(fields, zap.Error(err))...)
			errs = append(errs, describeCreateErr(coll, name, isTrue(unique), err))
			continue
		}
		zap.L().Info("index ensured", append(fields,
			zap.String("created_name", created),
			zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Admin user lists: filter by role/status, sort by name.
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "status", Value: 1},
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_status_fullnameci_id"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_users_role_created"),
		},
	})
}

func ensureRoles(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("roles"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_roles_nameci"),
		},
	})
}

func ensureRides(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("rides"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "passenger_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_rides_passenger_created"),
		},
		{
			Keys:    bson.D{{Key: "driver_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_rides_driver_created"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_rides_status_created"),
		},
		{
			Keys:    bson.D{{Key: "pickup.point", Value: "2dsphere"}},
			Options: options.Index().SetName("geo_rides_pickup"),
		},
		// One active ride per passenger, and per assigned driver.
		{
			Keys: bson.D{{Key: "passenger_id", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_rides_passenger_active").
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_rides_driver_active").
				SetPartialFilterExpression(bson.M{"active": true, "driver_id": bson.M{"$exists": true}}),
		},
	})
}

func ensureDriverLocations(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("driver_locations"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "driver_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_driverloc_driver"),
		},
		{
			Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
			Options: options.Index().SetName("geo_driverloc_location"),
		},
	})
}

func ensureRatings(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("ratings"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ride_id", Value: 1}, {Key: "rater_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_ratings_ride_rater"),
		},
		// Average recompute and "received" lists.
		{
			Keys:    bson.D{{Key: "rated_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_ratings_rated_created"),
		},
		{
			Keys:    bson.D{{Key: "rater_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_ratings_rater_created"),
		},
	})
}

func ensureWallets(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("wallets"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_wallets_user"),
		},
	})
}

func ensureWalletTransactions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("wallet_transactions"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_wtx_user_created"),
		},
		// Balance aggregation: $match on wallet, status, balance type.
		{
			Keys: bson.D{
				{Key: "wallet_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "balance_type", Value: 1},
			},
			Options: options.Index().SetName("idx_wtx_wallet_status_baltype"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_wtx_category_created"),
		},
		// Idempotency key for settlement and purchases.
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_wtx_reference"),
		},
	})
}

func ensureDocuments(coll string) func(context.Context, *mongo.Database) error {
	short := strings.TrimSuffix(coll, "_documents")
	return func(ctx context.Context, db *mongo.Database) error {
		return ensureIndexSet(ctx, db.Collection(coll), []mongo.IndexModel{
			{
				Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "document_type", Value: 1}, {Key: "is_active", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_" + short + "docs_active").
					SetPartialFilterExpression(bson.M{"is_active": true}),
			},
			{
				Keys: bson.D{
					{Key: "driver_id", Value: 1},
					{Key: "document_type", Value: 1},
					{Key: "version", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("uniq_" + short + "docs_version"),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
				Options: options.Index().SetName("idx_" + short + "docs_status_created"),
			},
		})
	}
}

func ensureSubscriptions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("subscriptions"), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_subs_driver_active").
				SetPartialFilterExpression(bson.M{"status": "active"}),
		},
		// Expiration sweeps.
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "end_date", Value: 1}},
			Options: options.Index().SetName("idx_subs_status_end"),
		},
		{
			Keys:    bson.D{{Key: "driver_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_subs_driver_created"),
		},
	})
}

func ensurePlans(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("subscription_plans"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_plans_code"),
		},
	})
}

func ensureEvps(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("evps"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "permit_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_evps_permit"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "end_date", Value: 1}},
			Options: options.Index().SetName("idx_evps_status_end"),
		},
		{
			Keys:    bson.D{{Key: "driver_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_evps_driver_created"),
		},
	})
}

func ensureBankAccounts(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("bank_accounts"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "driver_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_bank_driver_created"),
		},
	})
}

func ensureWithdrawals(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("withdrawal_requests"), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_withdrawals_driver_pending").
				SetPartialFilterExpression(bson.M{"status": "pending"}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_withdrawals_status_created"),
		},
	})
}

func ensureEmergencyContacts(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("emergency_contacts"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_contacts_user_phone"),
		},
	})
}

func ensureNotifications(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("notifications"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_notifications_user_created"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}},
			Options: options.Index().SetName("idx_notifications_user_read"),
		},
	})
}
