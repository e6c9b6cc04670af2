// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account roles. A user has exactly one.
const (
	RoleAdmin     = "admin"
	RoleDriver    = "driver"
	RolePassenger = "passenger"
)

// Account statuses.
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User represents admins, drivers, and passengers.
//
// NOTE:
//   - Users are never hard-deleted; disabling sets Status.
//   - AverageRating/RatingCount are a projection of the ratings collection and
//     are rewritten by the ratings services after every new rating.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         string             `bson:"role" json:"role"` // admin | driver | passenger
	Status       string             `bson:"status" json:"status"`

	// Admin permission role; nil for drivers and passengers.
	RoleID       *primitive.ObjectID `bson:"role_id,omitempty" json:"role_id,omitempty"`
	IsSuperAdmin bool                `bson:"is_superadmin,omitempty" json:"is_superadmin,omitempty"`

	MustChangePassword bool     `bson:"must_change_password,omitempty" json:"must_change_password,omitempty"`
	PhotoURL           string   `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	DeviceTokens       []string `bson:"device_tokens,omitempty" json:"-"`

	AverageRating float64 `bson:"average_rating" json:"average_rating"`
	RatingCount   int     `bson:"rating_count" json:"rating_count"`

	// Driver-only.
	Vehicle        *Vehicle `bson:"vehicle,omitempty" json:"vehicle,omitempty"`
	DriverVerified bool     `bson:"driver_verified,omitempty" json:"driver_verified,omitempty"`

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// Vehicle is the car a driver operates.
type Vehicle struct {
	Make  string `bson:"make" json:"make"`
	Model string `bson:"model" json:"model"`
	Year  int    `bson:"year,omitempty" json:"year,omitempty"`
	Color string `bson:"color,omitempty" json:"color,omitempty"`
	Plate string `bson:"plate" json:"plate"`
}

// IsActive reports whether the account may sign in.
func (u *User) IsActive() bool { return u.Status == UserStatusActive }
