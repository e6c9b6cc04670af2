// internal/app/store/ratings/ratingstore.go
package ratingstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrAlreadyRated is returned when (ride_id, rater_id) already has a rating.
var ErrAlreadyRated = errors.New("ride already rated by this user")

// Store manages ride ratings.
type Store struct {
	docstore.Repository[models.Rating]
}

func New(db *mongo.Database) *Store {
	return &Store{Repository: docstore.NewRepository[models.Rating](db, "ratings")}
}

// Create inserts a rating. The unique (ride_id, rater_id) index makes
// concurrent duplicates fail with ErrAlreadyRated.
func (s *Store) Create(ctx context.Context, r models.Rating) (models.Rating, error) {
	r.ID = primitive.NewObjectID()
	r.CreatedAt = time.Now().UTC()
	if _, err := s.Insert(ctx, &r); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Rating{}, ErrAlreadyRated
		}
		return models.Rating{}, fmt.Errorf("create rating: %w", err)
	}
	return r, nil
}

// Summary aggregates every rating ratedID has received. The average is
// rounded to two decimals.
func (s *Store) Summary(ctx context.Context, ratedID primitive.ObjectID) (models.RatingSummary, error) {
	cur, err := s.Collection().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"rated_id": ratedID}}},
		{{Key: "$group", Value: bson.M{"_id": "$stars", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("rating summary: %w", err)
	}
	var rows []struct {
		Stars int `bson:"_id"`
		N     int `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return models.RatingSummary{}, fmt.Errorf("rating summary decode: %w", err)
	}

	sum := models.RatingSummary{Histogram: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	total := 0
	for _, r := range rows {
		sum.Histogram[r.Stars] += r.N
		sum.Count += r.N
		total += r.Stars * r.N
	}
	if sum.Count > 0 {
		sum.Average = math.Round(float64(total)/float64(sum.Count)*100) / 100
	}
	return sum, nil
}

// ListFilter narrows rating lists.
type ListFilter struct {
	RaterID   *primitive.ObjectID
	RatedID   *primitive.ObjectID
	RaterRole string
	MaxStars  int
}

// List returns one page of ratings, newest first.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) ([]models.Rating, int64, error) {
	q := bson.M{}
	if f.RaterID != nil {
		q["rater_id"] = *f.RaterID
	}
	if f.RatedID != nil {
		q["rated_id"] = *f.RatedID
	}
	if f.RaterRole != "" {
		q["rater_role"] = f.RaterRole
	}
	if f.MaxStars > 0 {
		q["stars"] = bson.M{"$lte": f.MaxStars}
	}
	return s.FindPage(ctx, q, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, p)
}
