// internal/domain/models/contact.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxEmergencyContacts is the per-user limit.
const MaxEmergencyContacts = 5

// EmergencyContact is someone to alert when a rider needs help.
type EmergencyContact struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name         string             `bson:"name" json:"name"`
	Phone        string             `bson:"phone" json:"phone"`
	Relationship string             `bson:"relationship,omitempty" json:"relationship,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Notification is an in-app message shown in a user's inbox.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type      string             `bson:"type" json:"type"`
	Title     string             `bson:"title" json:"title"`
	Body      string             `bson:"body" json:"body"`
	Data      map[string]string  `bson:"data,omitempty" json:"data,omitempty"`
	Read      bool               `bson:"read" json:"read"`
	ReadAt    *time.Time         `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
