// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/ridehub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collections lists every collection EnsureAll creates, in creation order.
var Collections = []string{
	"users",
	"rides",
	"ratings",
	"wallets",
	"wallet_transactions",
	"withdrawal_requests",
	"subscriptions",
	"evps",
	"notifications",
	"driver_locations",
}

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
//
// Validators run at the moderate level, so documents written before a
// schema change are not rejected on unrelated updates.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	schemas := map[string]bson.M{
		"users":               usersSchema(),
		"rides":               ridesSchema(),
		"ratings":             ratingsSchema(),
		"wallets":             walletsSchema(),
		"wallet_transactions": walletTransactionsSchema(),
		"withdrawal_requests": withdrawalsSchema(),
		"subscriptions":       subscriptionsSchema(),
		"evps":                evpsSchema(),
	}

	var problems []string
	for _, coll := range Collections {
		if _, err := ensureCollection(ctx, db, coll, logger); err != nil {
			problems = append(problems, coll+": "+err.Error())
			continue
		}
		schema, ok := schemas[coll]
		if !ok {
			continue
		}
		if err := setValidator(ctx, db, coll, schema, logger); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				logger.Info("validator skipped (unsupported)", zap.String("collection", coll))
				continue
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, logger *zap.Logger) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		logger.Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	logger.Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M, logger *zap.Logger) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	logger.Debug("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	objectID = bson.M{"bsonType": "objectId"}
	date     = bson.M{"bsonType": "date"}
	number   = bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}}
)

func enum(vals ...string) bson.M {
	a := make(bson.A, len(vals))
	for i, v := range vals {
		a[i] = v
	}
	return bson.M{"enum": a}
}

func object(required []string, props bson.M) bson.M {
	req := make(bson.A, len(required))
	for i, r := range required {
		req[i] = r
	}
	return bson.M{"$jsonSchema": bson.M{
		"bsonType":   "object",
		"required":   req,
		"properties": props,
	}}
}

func usersSchema() bson.M {
	return object([]string{"email", "role", "status"}, bson.M{
		"full_name":      bson.M{"bsonType": "string"},
		"email":          bson.M{"bsonType": "string", "minLength": 1},
		"role":           enum(models.RoleAdmin, models.RoleDriver, models.RolePassenger),
		"status":         enum(models.UserStatusActive, models.UserStatusDisabled),
		"role_id":        bson.M{"bsonType": bson.A{"objectId", "null"}},
		"average_rating": number,
		"rating_count":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
	})
}

func ridesSchema() bson.M {
	return object([]string{"passenger_id", "pickup", "dropoff", "status", "payment_method"}, bson.M{
		"passenger_id": objectID,
		"driver_id":    bson.M{"bsonType": bson.A{"objectId", "null"}},
		"status": enum(models.RideRequested, models.RideDriverAccepted, models.RideDriverArrived,
			models.RideStarted, models.RideCompleted, models.RideCancelled),
		"payment_method": enum(models.PaymentCash, models.PaymentWallet),
		"estimated_fare": number,
		"final_fare":     number,
		"created_at":     date,
	})
}

func ratingsSchema() bson.M {
	return object([]string{"ride_id", "rater_id", "rated_id", "rater_role", "stars"}, bson.M{
		"ride_id":    objectID,
		"rater_id":   objectID,
		"rated_id":   objectID,
		"rater_role": enum(models.RaterPassenger, models.RaterDriver),
		"stars":      bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1, "maximum": 5},
	})
}

func walletsSchema() bson.M {
	return object([]string{"user_id", "balance", "currency"}, bson.M{
		"user_id":  objectID,
		"balance":  number,
		"currency": bson.M{"bsonType": "string"},
	})
}

func walletTransactionsSchema() bson.M {
	return object([]string{"wallet_id", "user_id", "type", "category", "amount", "status"}, bson.M{
		"wallet_id":    objectID,
		"user_id":      objectID,
		"type":         enum(models.TxnCredit, models.TxnDebit),
		"balance_type": enum(models.BalanceWallet, models.BalanceEarnings),
		"category": enum(models.CategoryDeposit, models.CategoryRidePayment, models.CategoryRideEarning,
			models.CategoryCommission, models.CategoryCancellationFee, models.CategoryWithdrawal,
			models.CategorySubscription, models.CategoryEvp, models.CategoryRefund, models.CategoryAdjustment),
		"amount":     bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "minimum": 0},
		"status":     enum(models.TxnPending, models.TxnCompleted, models.TxnFailed, models.TxnCancelled),
		"created_at": date,
	})
}

func withdrawalsSchema() bson.M {
	return object([]string{"driver_id", "amount", "status"}, bson.M{
		"driver_id":       objectID,
		"bank_account_id": objectID,
		"amount":          number,
		"status":          enum(models.WithdrawalPending, models.WithdrawalProcessing, models.WithdrawalApproved, models.WithdrawalRejected),
	})
}

func subscriptionsSchema() bson.M {
	return object([]string{"driver_id", "plan_code", "status", "start_date"}, bson.M{
		"driver_id":  objectID,
		"plan_code":  bson.M{"bsonType": "string", "minLength": 1},
		"status":     enum(models.SubscriptionActive, models.SubscriptionExpired, models.SubscriptionCancelled),
		"start_date": date,
		"end_date":   bson.M{"bsonType": bson.A{"date", "null"}},
	})
}

func evpsSchema() bson.M {
	return object([]string{"driver_id", "status", "start_date", "end_date"}, bson.M{
		"driver_id":  objectID,
		"status":     enum(models.EvpActive, models.EvpExpired, models.EvpRevoked),
		"start_date": date,
		"end_date":   date,
	})
}
