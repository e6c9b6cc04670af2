package userstore

import (
	"context"
	"regexp"

	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FetchUser implements auth.UserFetcher so role changes and disabled
// accounts apply on the next request instead of at token expiry.
func (s *Store) FetchUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	proj := options.FindOne().SetProjection(bson.M{
		"_id":           1,
		"full_name":     1,
		"email":         1,
		"role":          1,
		"role_id":       1,
		"is_superadmin": 1,
		"status":        1,
	})
	return s.FindOne(ctx, bson.M{"_id": id}, proj)
}

func regexQuote(s string) string { return regexp.QuoteMeta(s) }
