// internal/domain/models/rating.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Who gave the rating.
const (
	RaterPassenger = "passenger"
	RaterDriver    = "driver"
)

// Rating is one party's score of the other for a completed ride.
// At most one exists per (ride_id, rater_id).
type Rating struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RideID    primitive.ObjectID `bson:"ride_id" json:"ride_id"`
	RaterID   primitive.ObjectID `bson:"rater_id" json:"rater_id"`
	RatedID   primitive.ObjectID `bson:"rated_id" json:"rated_id"`
	RaterRole string             `bson:"rater_role" json:"rater_role"`
	Stars     int                `bson:"stars" json:"stars"` // 1..5
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	Tags      []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// RatingSummary aggregates the ratings a user has received.
type RatingSummary struct {
	Average   float64     `json:"average"`
	Count     int         `json:"count"`
	Histogram map[int]int `json:"histogram"`
}
