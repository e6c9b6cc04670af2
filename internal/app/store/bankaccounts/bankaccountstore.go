// internal/app/store/bankaccounts/bankaccountstore.go
package bankaccountstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages driver payout accounts.
type Store struct {
	docstore.Repository[models.BankAccount]
}

func New(db *mongo.Database) *Store {
	return &Store{Repository: docstore.NewRepository[models.BankAccount](db, "bank_accounts")}
}

func owned(driverID, id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "driver_id": driverID}
}

// Create inserts an account. A driver's first account becomes the default.
func (s *Store) Create(ctx context.Context, a models.BankAccount) (models.BankAccount, error) {
	n, err := s.Count(ctx, bson.M{"driver_id": a.DriverID})
	if err != nil {
		return models.BankAccount{}, err
	}
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.IsDefault = n == 0
	a.CreatedAt, a.UpdatedAt = now, now
	if _, err := s.Insert(ctx, &a); err != nil {
		return models.BankAccount{}, fmt.Errorf("create bank account: %w", err)
	}
	return a, nil
}

// List returns the driver's accounts, default first.
func (s *Store) List(ctx context.Context, driverID primitive.ObjectID) ([]models.BankAccount, error) {
	return s.Find(ctx, bson.M{"driver_id": driverID},
		options.Find().SetSort(bson.D{{Key: "is_default", Value: -1}, {Key: "created_at", Value: 1}}))
}

// Get loads one of the driver's accounts.
func (s *Store) Get(ctx context.Context, driverID, id primitive.ObjectID) (*models.BankAccount, error) {
	return s.FindOne(ctx, owned(driverID, id))
}

// Update changes the display fields of one of the driver's accounts.
func (s *Store) Update(ctx context.Context, driverID, id primitive.ObjectID, bankName, holder string) (*models.BankAccount, error) {
	return s.FindOneAndUpdate(ctx, owned(driverID, id), bson.M{"$set": bson.M{
		"bank_name":      bankName,
		"account_holder": holder,
		"updated_at":     time.Now().UTC(),
	}})
}

// Delete removes one of the driver's accounts. If it was the default, the
// oldest remaining account is promoted.
func (s *Store) Delete(ctx context.Context, driverID, id primitive.ObjectID) error {
	a, err := s.Get(ctx, driverID, id)
	if err != nil {
		return err
	}
	if err := s.DeleteOne(ctx, owned(driverID, id)); err != nil {
		return err
	}
	if !a.IsDefault {
		return nil
	}
	rest, err := s.List(ctx, driverID)
	if err != nil || len(rest) == 0 {
		return err
	}
	return s.SetDefault(ctx, driverID, rest[0].ID)
}

// SetDefault makes id the driver's only default account.
func (s *Store) SetDefault(ctx context.Context, driverID, id primitive.ObjectID) error {
	ok, err := s.Exists(ctx, owned(driverID, id))
	if err != nil {
		return err
	}
	if !ok {
		return docstore.ErrNotFound
	}
	if _, err := s.UpdateMany(ctx,
		bson.M{"driver_id": driverID, "_id": bson.M{"$ne": id}},
		bson.M{"$set": bson.M{"is_default": false}}); err != nil {
		return err
	}
	return s.UpdateByID(ctx, id, bson.M{"$set": bson.M{"is_default": true, "updated_at": time.Now().UTC()}})
}
