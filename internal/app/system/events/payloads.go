package events

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserEvent covers registration and password lifecycle topics.
type UserEvent struct {
	Name     string
	UserID   primitive.ObjectID
	Email    string
	FullName string
	Role     string
	// ResetURL is set for password reset requests.
	ResetURL string
}

func (e UserEvent) Topic() string { return e.Name }

// AdminCreatedEvent carries the temporary password for the invitation email.
type AdminCreatedEvent struct {
	UserID       primitive.ObjectID
	Email        string
	FullName     string
	TempPassword string
	CreatedBy    primitive.ObjectID
}

func (AdminCreatedEvent) Topic() string { return AdminCreated }

// AdminLoginLockedEvent is raised when an admin account trips the
// failed-login threshold.
type AdminLoginLockedEvent struct {
	UserID   primitive.ObjectID
	Email    string
	FullName string
	IP       string
	Attempts int
}

func (AdminLoginLockedEvent) Topic() string { return AdminLoginFailedLocked }

// RideRequestedEvent lists the drivers who should hear about a new request.
type RideRequestedEvent struct {
	RideID        primitive.ObjectID
	PassengerID   primitive.ObjectID
	PickupAddress string
	EstimatedFare float64
	Currency      string
	DriverIDs     []primitive.ObjectID
}

func (RideRequestedEvent) Topic() string { return RideRequested }

// RideStatusEvent is raised after every successful transition.
type RideStatusEvent struct {
	RideID      primitive.ObjectID
	PassengerID primitive.ObjectID
	DriverID    *primitive.ObjectID
	From        string
	To          string
	// Actor is the role that caused the change: passenger, driver or system.
	Actor string
}

func (RideStatusEvent) Topic() string { return RideStatusChanged }

// DocumentReviewedEvent tells a driver how a document review went.
type DocumentReviewedEvent struct {
	DocumentID   primitive.ObjectID
	DriverID     primitive.ObjectID
	DocumentType string
	Status       string
	Reason       string
}

func (DocumentReviewedEvent) Topic() string { return DocumentReviewed }

// WithdrawalProcessedEvent tells a driver a payout was decided.
type WithdrawalProcessedEvent struct {
	WithdrawalID primitive.ObjectID
	DriverID     primitive.ObjectID
	Amount       float64
	Status       string
	Reason       string
}

func (WithdrawalProcessedEvent) Topic() string { return WithdrawalProcessed }

// ExpiryEvent covers the four expiring/expired topics for subscriptions
// and permits.
type ExpiryEvent struct {
	Name     string
	DriverID primitive.ObjectID
	ItemID   primitive.ObjectID
	// Label is shown to the driver, e.g. the plan name or permit number.
	Label   string
	EndDate time.Time
}

func (e ExpiryEvent) Topic() string { return e.Name }

// Expired reports whether this is an "expired" rather than "expiring" event.
func (e ExpiryEvent) Expired() bool {
	return e.Name == SubscriptionExpired || e.Name == EvpExpired
}
