// internal/app/store/settings/settingsstore.go
package settingsstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotInitialized means Init has not run against this database.
var ErrNotInitialized = errors.New("platform settings not initialized")

// Store provides access to the platform_settings collection, which holds a
// single document keyed by models.PlatformSettingsID.
type Store struct {
	c *mongo.Collection
}

// New creates a new settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("platform_settings")}
}

// Init writes the default settings document if none exists. Existing
// values are never overwritten, so Init is safe on every startup.
func (s *Store) Init(ctx context.Context) error {
	def := models.DefaultPlatformSettings()
	now := time.Now().UTC()
	def.UpdatedAt = &now

	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": models.PlatformSettingsID},
		bson.M{"$setOnInsert": def},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("init platform settings: %w", err)
	}
	return nil
}

// Get returns the settings document.
func (s *Store) Get(ctx context.Context) (models.PlatformSettings, error) {
	var ps models.PlatformSettings
	err := s.c.FindOne(ctx, bson.M{"_id": models.PlatformSettingsID}).Decode(&ps)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.PlatformSettings{}, ErrNotInitialized
	}
	if err != nil {
		return models.PlatformSettings{}, fmt.Errorf("get platform settings: %w", err)
	}
	return ps, nil
}

// Save replaces every editable field and returns the stored document.
func (s *Store) Save(ctx context.Context, ps models.PlatformSettings) (models.PlatformSettings, error) {
	now := time.Now().UTC()
	ps.ID = models.PlatformSettingsID
	ps.UpdatedAt = &now

	var out models.PlatformSettings
	err := s.c.FindOneAndReplace(ctx,
		bson.M{"_id": models.PlatformSettingsID},
		ps,
		options.FindOneAndReplace().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.PlatformSettings{}, ErrNotInitialized
	}
	if err != nil {
		return models.PlatformSettings{}, fmt.Errorf("save platform settings: %w", err)
	}
	return out, nil
}
