// internal/app/store/roles/rolestore.go
package rolestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/app/system/normalize"
	"github.com/dalemusser/ridehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateName = errors.New("a role with this name already exists")
	ErrSystemRole    = errors.New("system roles cannot be modified")
)

// Store manages admin permission roles.
type Store struct {
	docstore.Repository[models.Role]
}

func New(db *mongo.Database) *Store {
	return &Store{Repository: docstore.NewRepository[models.Role](db, "roles")}
}

// Create inserts a role.
func (s *Store) Create(ctx context.Context, r models.Role) (models.Role, error) {
	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	r.Name = normalize.Name(r.Name)
	r.NameCI = text.Fold(r.Name)
	if r.Permissions == nil {
		r.Permissions = []string{}
	}
	r.CreatedAt, r.UpdatedAt = now, now
	if _, err := s.Insert(ctx, &r); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Role{}, ErrDuplicateName
		}
		return models.Role{}, fmt.Errorf("create role: %w", err)
	}
	return r, nil
}

// Update replaces name, description and permissions of a non-system role.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, name, description string, perms []string) (*models.Role, error) {
	name = normalize.Name(name)
	if perms == nil {
		perms = []string{}
	}
	r, err := s.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_system": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{
			"name":        name,
			"name_ci":     text.Fold(name),
			"description": description,
			"permissions": perms,
			"updated_at":  time.Now().UTC(),
		}})
	switch {
	case err == nil:
		return r, nil
	case errors.Is(err, docstore.ErrNotFound):
		return nil, s.missingOrSystem(ctx, id)
	case wafflemongo.IsDup(err):
		return nil, ErrDuplicateName
	}
	return nil, err
}

// Delete removes a non-system role.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.DeleteOne(ctx, bson.M{"_id": id, "is_system": bson.M{"$ne": true}})
	if errors.Is(err, docstore.ErrNotFound) {
		return s.missingOrSystem(ctx, id)
	}
	return err
}

func (s *Store) missingOrSystem(ctx context.Context, id primitive.ObjectID) error {
	if ok, _ := s.Exists(ctx, bson.M{"_id": id}); ok {
		return ErrSystemRole
	}
	return docstore.ErrNotFound
}

// List returns every role sorted by name.
func (s *Store) List(ctx context.Context) ([]models.Role, error) {
	return s.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
}

// Permissions implements authz.PermissionSource.
func (s *Store) Permissions(ctx context.Context, roleID primitive.ObjectID) ([]string, error) {
	r, err := s.FindByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return r.Permissions, nil
}
