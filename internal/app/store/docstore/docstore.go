// Package docstore is the generic CRUD repository every collection store
// builds on.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when a lookup or targeted update matches nothing.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidID is returned by ParseID for malformed hex ids.
	ErrInvalidID = errors.New("invalid object id")
)

// ParseID converts a hex string from a URL or body into an ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

// Repository provides typed CRUD over one collection. T is the document model.
type Repository[T any] struct {
	c *mongo.Collection
}

// NewRepository binds a repository to db.collection(name).
func NewRepository[T any](db *mongo.Database, name string) Repository[T] {
	return Repository[T]{c: db.Collection(name)}
}

// Collection exposes the underlying collection for aggregations.
func (r Repository[T]) Collection() *mongo.Collection { return r.c }

// Insert stores doc and returns the inserted _id.
func (r Repository[T]) Insert(ctx context.Context, doc *T) (primitive.ObjectID, error) {
	res, err := r.c.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

// FindByID loads one document by _id.
func (r Repository[T]) FindByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return r.FindOne(ctx, bson.M{"_id": id})
}

// FindOne returns the first match or ErrNotFound.
func (r Repository[T]) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*T, error) {
	var doc T
	err := r.c.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s find one: %w", r.c.Name(), err)
	}
	return &doc, nil
}

// Find returns every match. An empty result is a nil slice and no error.
func (r Repository[T]) Find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := r.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s find: %w", r.c.Name(), err)
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("%s decode: %w", r.c.Name(), err)
	}
	return out, nil
}

// FindPage returns one page of matches sorted by sort, plus the total count.
func (r Repository[T]) FindPage(ctx context.Context, filter any, sort bson.D, p paging.Params) ([]T, int64, error) {
	total, err := r.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("%s count: %w", r.c.Name(), err)
	}
	if total == 0 {
		return nil, 0, nil
	}
	opts := options.Find().SetSort(sort).SetSkip(p.Skip()).SetLimit(int64(p.Limit))
	items, err := r.Find(ctx, filter, opts)
	return items, total, err
}

// UpdateByID applies update to one document, returning ErrNotFound when
// the id does not exist.
func (r Repository[T]) UpdateByID(ctx context.Context, id primitive.ObjectID, update any) error {
	res, err := r.c.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("%s update: %w", r.c.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateOne applies update to the first match and reports whether one
// matched. Conditional (compare-and-swap) writes use the bool.
func (r Repository[T]) UpdateOne(ctx context.Context, filter, update any) (bool, error) {
	res, err := r.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("%s update one: %w", r.c.Name(), err)
	}
	return res.MatchedCount > 0, nil
}

// UpdateMany applies update to every match and returns the modified count.
func (r Repository[T]) UpdateMany(ctx context.Context, filter, update any) (int64, error) {
	res, err := r.c.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("%s update many: %w", r.c.Name(), err)
	}
	return res.ModifiedCount, nil
}

// FindOneAndUpdate applies update to the first match and returns the
// document after the update, or ErrNotFound.
func (r Repository[T]) FindOneAndUpdate(ctx context.Context, filter, update any) (*T, error) {
	var doc T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s find and update: %w", r.c.Name(), err)
	}
	return &doc, nil
}

// DeleteByID removes one document, returning ErrNotFound when absent.
func (r Repository[T]) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	return r.DeleteOne(ctx, bson.M{"_id": id})
}

// DeleteOne removes the first match, returning ErrNotFound when none.
func (r Repository[T]) DeleteOne(ctx context.Context, filter any) error {
	res, err := r.c.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("%s delete: %w", r.c.Name(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of matches.
func (r Repository[T]) Count(ctx context.Context, filter any) (int64, error) {
	n, err := r.c.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%s count: %w", r.c.Name(), err)
	}
	return n, nil
}

// Exists reports whether at least one document matches.
func (r Repository[T]) Exists(ctx context.Context, filter any) (bool, error) {
	n, err := r.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("%s exists: %w", r.c.Name(), err)
	}
	return n > 0, nil
}
