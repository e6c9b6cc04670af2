// internal/domain/models/subscription.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanFree is the code of the fallback plan every driver starts on.
const PlanFree = "free"

// DefaultFreeDailyRideRequests is the free plan's daily accept limit
// when no free plan document has been configured.
const DefaultFreeDailyRideRequests = 5

// Subscription statuses.
const (
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
)

// SubscriptionPlan is a purchasable driver plan.
type SubscriptionPlan struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code         string             `bson:"code" json:"code"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Price        float64            `bson:"price" json:"price"`
	DurationDays int                `bson:"duration_days" json:"duration_days"`
	// DailyRideRequests caps accepted ride requests per day; 0 means unlimited.
	DailyRideRequests int       `bson:"daily_ride_requests" json:"daily_ride_requests"`
	IsActive          bool      `bson:"is_active" json:"is_active"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

// Subscription is one driver's plan instance.
type Subscription struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	DriverID   primitive.ObjectID  `bson:"driver_id" json:"driver_id"`
	PlanID     *primitive.ObjectID `bson:"plan_id,omitempty" json:"plan_id,omitempty"`
	PlanCode   string              `bson:"plan_code" json:"plan_code"`
	PlanName   string              `bson:"plan_name" json:"plan_name"`
	Status     string              `bson:"status" json:"status"`
	AmountPaid float64             `bson:"amount_paid" json:"amount_paid"`
	StartDate  time.Time           `bson:"start_date" json:"start_date"`
	EndDate    *time.Time          `bson:"end_date,omitempty" json:"end_date,omitempty"` // nil for free

	DailyRideRequestLimit int `bson:"daily_ride_request_limit" json:"daily_ride_request_limit"`
	DailyRideRequests     int `bson:"daily_ride_requests" json:"daily_ride_requests"`
	// LastRideRequestDate is the UTC calendar day ("2006-01-02") the counter belongs to.
	LastRideRequestDate string `bson:"last_ride_request_date,omitempty" json:"last_ride_request_date,omitempty"`

	ExpiredAt   *time.Time `bson:"expired_at,omitempty" json:"expired_at,omitempty"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// IsFree reports whether this is the fallback plan.
func (s *Subscription) IsFree() bool { return s.PlanCode == PlanFree }

// EVP statuses.
const (
	EvpActive  = "active"
	EvpExpired = "expired"
	EvpRevoked = "revoked"
)

// Evp is an electronic vehicle permit held by a driver for a fixed period.
type Evp struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	DriverID     primitive.ObjectID  `bson:"driver_id" json:"driver_id"`
	PermitNumber string              `bson:"permit_number" json:"permit_number"`
	Price        float64             `bson:"price" json:"price"`
	Source       string              `bson:"source" json:"source"` // purchase | admin
	Status       string              `bson:"status" json:"status"`
	StartDate    time.Time           `bson:"start_date" json:"start_date"`
	EndDate      time.Time           `bson:"end_date" json:"end_date"`
	IssuedBy     *primitive.ObjectID `bson:"issued_by,omitempty" json:"issued_by,omitempty"`
	RevokeReason string              `bson:"revoke_reason,omitempty" json:"revoke_reason,omitempty"`
	ExpiredAt    *time.Time          `bson:"expired_at,omitempty" json:"expired_at,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
}
