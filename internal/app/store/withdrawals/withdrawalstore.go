// internal/app/store/withdrawals/withdrawalstore.go
package withdrawalstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrPendingExists means the driver already has a pending request.
	ErrPendingExists = errors.New("a withdrawal request is already pending")
	// ErrAlreadyDecided is returned when deciding a request that is no longer pending.
	ErrAlreadyDecided = errors.New("withdrawal request already processed")
)

// Store manages withdrawal requests.
type Store struct {
	docstore.Repository[models.WithdrawalRequest]
}

func New(db *mongo.Database) *Store {
	return &Store{Repository: docstore.NewRepository[models.WithdrawalRequest](db, "withdrawal_requests")}
}

// Create inserts a pending request. The partial unique index allows one
// pending request per driver.
func (s *Store) Create(ctx context.Context, w models.WithdrawalRequest) (models.WithdrawalRequest, error) {
	now := time.Now().UTC()
	w.ID = primitive.NewObjectID()
	w.Status = models.WithdrawalPending
	w.CreatedAt, w.UpdatedAt = now, now
	if _, err := s.Insert(ctx, &w); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.WithdrawalRequest{}, ErrPendingExists
		}
		return models.WithdrawalRequest{}, fmt.Errorf("create withdrawal: %w", err)
	}
	return w, nil
}

// ListFilter narrows withdrawal lists.
type ListFilter struct {
	DriverID *primitive.ObjectID
	Status   string
}

// List returns one page of requests, newest first.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) ([]models.WithdrawalRequest, int64, error) {
	q := bson.M{}
	if f.DriverID != nil {
		q["driver_id"] = *f.DriverID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	return s.FindPage(ctx, q, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, p)
}

// CountPending counts requests awaiting review.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	return s.Count(ctx, bson.M{"status": models.WithdrawalPending})
}

// Claim moves a request to processing for reviewer. A pending request can
// always be claimed; a processing one only once its claim is older than
// staleBefore, so an approval interrupted after its debit can be finished.
func (s *Store) Claim(ctx context.Context, id, reviewer primitive.ObjectID, staleBefore time.Time) (*models.WithdrawalRequest, error) {
	now := time.Now().UTC()
	w, err := s.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "$or": bson.A{
			bson.M{"status": models.WithdrawalPending},
			bson.M{"status": models.WithdrawalProcessing, "claimed_at": bson.M{"$lt": staleBefore}},
		}},
		bson.M{"$set": bson.M{
			"status":     models.WithdrawalProcessing,
			"claimed_by": reviewer,
			"claimed_at": now,
			"updated_at": now,
		}})
	if errors.Is(err, docstore.ErrNotFound) {
		if ok, _ := s.Exists(ctx, bson.M{"_id": id}); ok {
			return nil, ErrAlreadyDecided
		}
	}
	return w, err
}

// Release hands a claimed request back to pending, for an approval whose
// debit was refused.
func (s *Store) Release(ctx context.Context, id, reviewer primitive.ObjectID) error {
	_, err := s.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.WithdrawalProcessing, "claimed_by": reviewer},
		bson.M{
			"$set":   bson.M{"status": models.WithdrawalPending, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"claimed_by": "", "claimed_at": ""},
		})
	return err
}

// Decide moves a request from status from to approved or rejected.
// Approvals decide from processing, so only the claim holder's debit is
// ever recorded; rejections decide from pending.
func (s *Store) Decide(ctx context.Context, id primitive.ObjectID, from, status string, reviewer primitive.ObjectID, reason string, txnID *primitive.ObjectID) (*models.WithdrawalRequest, error) {
	now := time.Now().UTC()
	set := bson.M{
		"status":      status,
		"reviewed_by": reviewer,
		"reviewed_at": now,
		"updated_at":  now,
	}
	if reason != "" {
		set["rejection_reason"] = reason
	}
	if txnID != nil {
		set["transaction_id"] = *txnID
	}
	filter := bson.M{"_id": id, "status": from}
	if from == models.WithdrawalProcessing {
		filter["claimed_by"] = reviewer
	}
	w, err := s.FindOneAndUpdate(ctx, filter, bson.M{"$set": set})
	if errors.Is(err, docstore.ErrNotFound) {
		if ok, _ := s.Exists(ctx, bson.M{"_id": id}); ok {
			return nil, ErrAlreadyDecided
		}
	}
	return w, err
}
