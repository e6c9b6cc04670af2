// internal/app/store/joblocks/joblockstore.go
package joblockstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store holds one lease document per scheduled job, keyed by job name.
// Besides the lease itself, each document records the last schedule slot
// claimed, and a slot is never claimed twice.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("job_locks")}
}

// TryAcquire claims slot for owner and holds the lease until now+ttl. It
// returns false when slot is not after the last claimed slot, or another
// owner holds an unexpired lease.
func (s *Store) TryAcquire(ctx context.Context, name, owner string, slot time.Time, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id": name,
			"$and": bson.A{
				bson.M{"$or": bson.A{
					bson.M{"last_slot": bson.M{"$lt": slot}},
					bson.M{"last_slot": bson.M{"$exists": false}},
				}},
				bson.M{"$or": bson.A{
					bson.M{"expires_at": bson.M{"$lte": now}},
					bson.M{"owner": owner},
				}},
			},
		},
		bson.M{"$set": bson.M{
			"owner":       owner,
			"last_slot":   slot,
			"acquired_at": now,
			"expires_at":  now.Add(ttl),
		}},
		options.Update().SetUpsert(true))
	if err != nil {
		// The filter missed, so the upsert collided on _id.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("acquire job lock %s: %w", name, err)
	}
	return true, nil
}

// Release ends owner's lease. The claimed slot stays recorded.
func (s *Store) Release(ctx context.Context, name, owner string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": name, "owner": owner},
		bson.M{"$set": bson.M{"expires_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("release job lock %s: %w", name, err)
	}
	return nil
}
