// internal/app/store/emergencycontacts/contactstore.go
package contactstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicatePhone is returned when the user already has a contact with that phone.
var ErrDuplicatePhone = errors.New("contact with this phone already exists")

// Store manages emergency contacts.
type Store struct {
	docstore.Repository[models.EmergencyContact]
}

func New(db *mongo.Database) *Store {
	return &Store{Repository: docstore.NewRepository[models.EmergencyContact](db, "emergency_contacts")}
}

// List returns the user's contacts in insertion order.
func (s *Store) List(ctx context.Context, userID primitive.ObjectID) ([]models.EmergencyContact, error) {
	return s.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// CountFor counts the user's contacts.
func (s *Store) CountFor(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.Count(ctx, bson.M{"user_id": userID})
}

// Create inserts a contact.
func (s *Store) Create(ctx context.Context, c models.EmergencyContact) (models.EmergencyContact, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.CreatedAt, c.UpdatedAt = now, now
	if _, err := s.Insert(ctx, &c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.EmergencyContact{}, ErrDuplicatePhone
		}
		return models.EmergencyContact{}, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

// Update rewrites one of the user's contacts.
func (s *Store) Update(ctx context.Context, userID, id primitive.ObjectID, name, phone, relationship string) (*models.EmergencyContact, error) {
	c, err := s.FindOneAndUpdate(ctx, bson.M{"_id": id, "user_id": userID}, bson.M{"$set": bson.M{
		"name":         name,
		"phone":        phone,
		"relationship": relationship,
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicatePhone
	}
	return c, err
}

// Delete removes one of the user's contacts.
func (s *Store) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	return s.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
}
