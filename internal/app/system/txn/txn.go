// Package txn runs multi-document writes inside a MongoDB transaction when
// the deployment supports one, and sequentially when it does not.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a transaction on db's client.
//
// On a standalone mongod (no replica set) transactions are unavailable; Run
// then logs once per call and executes fn directly with ctx, so the writes
// are applied in order without atomicity. Callers that need a recovery path
// for that case (for example wallet reconciliation) provide it separately.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runWithout(ctx, log, fn, err)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return runWithout(ctx, log, fn, err)
	}
	return err
}

func runWithout(ctx context.Context, log *zap.Logger, fn func(ctx context.Context) error, cause error) error {
	if log != nil {
		log.Warn("transactions not supported; running writes sequentially", zap.Error(cause))
	}
	return fn(ctx)
}

// IsNotSupported reports whether err means the server cannot run
// multi-document transactions (standalone server, or an unsupported
// operation inside one).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, (legacy) IllegalOperation, OperationNotSupportedInTransaction
			return true
		}
	}
	s := strings.ToLower(err.Error())
	has := func(a, b string) bool { return strings.Contains(s, a) && strings.Contains(s, b) }
	return has("transaction", "replica set") ||
		has("session", "not supported") ||
		has("transaction", "session") ||
		strings.Contains(s, "illegal operation")
}
