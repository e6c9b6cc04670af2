// internal/domain/models/ride.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ride statuses. A ride moves forward through
// requested → driver_accepted → driver_arrived → ride_started → ride_completed
// and may be cancelled before it starts.
const (
	RideRequested      = "requested"
	RideDriverAccepted = "driver_accepted"
	RideDriverArrived  = "driver_arrived"
	RideStarted        = "ride_started"
	RideCompleted      = "ride_completed"
	RideCancelled      = "cancelled"
)

// Payment methods.
const (
	PaymentCash   = "cash"
	PaymentWallet = "wallet"
)

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from latitude/longitude.
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Lat returns the latitude, or 0 for an empty point.
func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Lng returns the longitude, or 0 for an empty point.
func (p GeoPoint) Lng() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

// Place is a geo point plus the human-readable address shown to riders.
type Place struct {
	Point   GeoPoint `bson:"point" json:"point"`
	Address string   `bson:"address,omitempty" json:"address,omitempty"`
}

// Ride pairs a passenger with a driver for one trip.
type Ride struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PassengerID primitive.ObjectID  `bson:"passenger_id" json:"passenger_id"`
	DriverID    *primitive.ObjectID `bson:"driver_id,omitempty" json:"driver_id,omitempty"`

	Pickup  Place `bson:"pickup" json:"pickup"`
	Dropoff Place `bson:"dropoff" json:"dropoff"`

	Status        string `bson:"status" json:"status"`
	PaymentMethod string `bson:"payment_method" json:"payment_method"`
	// Active mirrors IsActive() so partial unique indexes can allow one
	// active ride per passenger and per driver.
	Active bool `bson:"active" json:"-"`

	DistanceKm    float64 `bson:"distance_km" json:"distance_km"`
	DurationMin   float64 `bson:"duration_min" json:"duration_min"`
	EstimatedFare float64 `bson:"estimated_fare" json:"estimated_fare"`
	FinalFare     float64 `bson:"final_fare,omitempty" json:"final_fare,omitempty"`
	Commission    float64 `bson:"commission,omitempty" json:"commission,omitempty"`
	DriverPayout  float64 `bson:"driver_payout,omitempty" json:"driver_payout,omitempty"`
	Currency      string  `bson:"currency" json:"currency"`

	CancelledBy     string  `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"` // passenger | driver | system
	CancelReason    string  `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
	CancellationFee float64 `bson:"cancellation_fee,omitempty" json:"cancellation_fee,omitempty"`

	// Set once the respective party has rated the other.
	PassengerRated bool `bson:"passenger_rated" json:"passenger_rated"`
	DriverRated    bool `bson:"driver_rated" json:"driver_rated"`

	Settled bool `bson:"settled,omitempty" json:"-"`
	// SettlementError holds the last failed settlement attempt until a
	// retry succeeds.
	SettlementError string `bson:"settlement_error,omitempty" json:"settlement_error,omitempty"`

	AcceptedAt  *time.Time `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	ArrivedAt   *time.Time `bson:"arrived_at,omitempty" json:"arrived_at,omitempty"`
	StartedAt   *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// IsActive reports whether the ride still occupies its passenger and driver.
func (r *Ride) IsActive() bool {
	switch r.Status {
	case RideRequested, RideDriverAccepted, RideDriverArrived, RideStarted:
		return true
	}
	return false
}

// ActiveRideStatuses lists the statuses for which IsActive is true.
var ActiveRideStatuses = []string{RideRequested, RideDriverAccepted, RideDriverArrived, RideStarted}

// DriverLocation is the last reported position of a driver.
type DriverLocation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DriverID  primitive.ObjectID `bson:"driver_id" json:"driver_id"`
	Location  GeoPoint           `bson:"location" json:"location"`
	Heading   float64            `bson:"heading,omitempty" json:"heading,omitempty"`
	Online    bool               `bson:"online" json:"online"`
	OnRide    bool               `bson:"on_ride" json:"on_ride"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
