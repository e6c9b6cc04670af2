package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/app/system/normalize"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "admin"|"driver"|"passenger"`)
	errBadStatus      = errors.New(`status must be "active"|"disabled"`)
)

type Store struct {
	docstore.Repository[models.User]
}

func New(db *mongo.Database) *Store {
	return &Store{Repository: docstore.NewRepository[models.User](db, "users")}
}

// GetByEmail looks up a user by case-insensitive email. Returns docstore.ErrNotFound if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.FindOne(ctx, bson.M{"email": normalize.Email(email)})
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Phone = normalize.Phone(u.Phone)
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}

	switch u.Role {
	case models.RoleAdmin, models.RoleDriver, models.RolePassenger:
	default:
		return models.User{}, errBadRole
	}
	if u.Status != models.UserStatusActive && u.Status != models.UserStatusDisabled {
		return models.User{}, errBadStatus
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.Insert(ctx, &u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// ProfileUpdate holds the self-editable profile fields. Nil fields are left alone.
type ProfileUpdate struct {
	FullName *string
	Phone    *string
	PhotoURL *string
	Vehicle  *models.Vehicle
}

// UpdateProfile applies upd and returns the updated user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.FullName != nil {
		name := normalize.Name(*upd.FullName)
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
	}
	if upd.Phone != nil {
		set["phone"] = normalize.Phone(*upd.Phone)
	}
	if upd.PhotoURL != nil {
		set["photo_url"] = *upd.PhotoURL
	}
	if upd.Vehicle != nil {
		set["vehicle"] = upd.Vehicle
	}
	return s.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

// SetPassword stores a new hash. mustChange flags temporary passwords.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string, mustChange bool) error {
	return s.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password_hash":        hash,
		"must_change_password": mustChange,
		"updated_at":           time.Now().UTC(),
	}})
}

// SetStatus enables or disables an account.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.User, error) {
	if status != models.UserStatusActive && status != models.UserStatusDisabled {
		return nil, errBadStatus
	}
	return s.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}})
}

// SetRole assigns (or with nil, clears) the permission role of an admin.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, roleID *primitive.ObjectID) (*models.User, error) {
	update := bson.M{"$set": bson.M{"role_id": roleID, "updated_at": time.Now().UTC()}}
	if roleID == nil {
		update = bson.M{
			"$unset": bson.M{"role_id": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		}
	}
	return s.FindOneAndUpdate(ctx, bson.M{"_id": id, "role": models.RoleAdmin}, update)
}

// CountWithRole counts users referencing an admin permission role.
func (s *Store) CountWithRole(ctx context.Context, roleID primitive.ObjectID) (int64, error) {
	return s.Count(ctx, bson.M{"role_id": roleID})
}

// SetRating writes the rating projection recomputed from the ratings collection.
func (s *Store) SetRating(ctx context.Context, id primitive.ObjectID, avg float64, count int) error {
	return s.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"average_rating": avg,
		"rating_count":   count,
		"updated_at":     time.Now().UTC(),
	}})
}

// SetDriverVerified records whether all required driver documents are approved.
func (s *Store) SetDriverVerified(ctx context.Context, id primitive.ObjectID, verified bool) error {
	return s.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"driver_verified": verified,
		"updated_at":      time.Now().UTC(),
	}})
}

// TouchLogin records a successful sign-in.
func (s *Store) TouchLogin(ctx context.Context, id primitive.ObjectID) error {
	return s.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_login_at": time.Now().UTC()}})
}

// AddDeviceToken registers a push token; repeats are ignored.
func (s *Store) AddDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return s.UpdateByID(ctx, id, bson.M{"$addToSet": bson.M{"device_tokens": token}})
}

// RemoveDeviceToken unregisters a push token from one user.
func (s *Store) RemoveDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return s.UpdateByID(ctx, id, bson.M{"$pull": bson.M{"device_tokens": token}})
}

// PruneDeviceToken removes a token the push provider reported as invalid,
// whichever user holds it.
func (s *Store) PruneDeviceToken(ctx context.Context, token string) error {
	_, err := s.UpdateMany(ctx, bson.M{"device_tokens": token}, bson.M{"$pull": bson.M{"device_tokens": token}})
	return err
}

// ListFilter narrows the admin user list.
type ListFilter struct {
	Role   string
	Status string
	Search string // prefix of the folded full name, or an exact email
}

// List returns one page of users sorted by name.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) ([]models.User, int64, error) {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = f.Role
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Search != "" {
		folded := text.Fold(f.Search)
		q["$or"] = bson.A{
			bson.M{"full_name_ci": bson.M{"$regex": "^" + regexQuote(folded)}},
			bson.M{"email": normalize.Email(f.Search)},
		}
	}
	return s.FindPage(ctx, q, bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}, p)
}

// CountByRole returns the number of users per role.
func (s *Store) CountByRole(ctx context.Context) (map[string]int64, error) {
	cur, err := s.Collection().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$role", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("users count by role: %w", err)
	}
	var rows []struct {
		Role string `bson:"_id"`
		N    int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("users count by role decode: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Role] = r.N
	}
	return out, nil
}
