// Package ridesvc drives the ride lifecycle: fare estimates, requests,
// the driver's accept/arrive/start/complete steps, cancellation, and
// settlement of completed rides through the wallet ledger.
//
// Every status change goes through transition, which checks the central
// transition table and then performs a conditional update on the expected
// current status, so two racing callers cannot both move the same ride.
package ridesvc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	locationsvc "github.com/dalemusser/ridehub/internal/app/services/driverlocations"
	subscriptionsvc "github.com/dalemusser/ridehub/internal/app/services/subscriptions"
	walletsvc "github.com/dalemusser/ridehub/internal/app/services/wallet"
	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	ridestore "github.com/dalemusser/ridehub/internal/app/store/rides"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/geo"
	"github.com/dalemusser/ridehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/metrics"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Who cancelled a ride.
const (
	ActorPassenger = "passenger"
	ActorDriver    = "driver"
	ActorSystem    = "system"
)

// StaleReason is recorded on requests no driver picked up in time.
const StaleReason = "No driver accepted the ride"

var (
	ErrRideNotFound      = apierr.NotFound("Ride not found")
	ErrBadCoordinates    = apierr.BadRequest("Invalid pickup or dropoff coordinates")
	ErrBadPayment        = apierr.BadRequest("Payment method must be cash or wallet")
	ErrPassengerBusy     = apierr.BadRequest("You already have an active ride")
	ErrDriverBusy        = apierr.BadRequest("You already have an active ride")
	ErrStatusChanged     = apierr.BadRequest("Ride status changed; please refresh")
	ErrNotVerified       = apierr.Forbidden("Your documents must be approved before you can accept rides")
	ErrInsufficientFunds = apierr.BadRequest("Insufficient wallet balance for this ride")
	ErrBadFinalFare      = apierr.BadRequest("Final fare must be a positive amount")
	ErrFinalFareTooHigh  = apierr.BadRequest("Final fare cannot exceed twice the estimated fare")
	ErrNotCompleted      = apierr.BadRequest("Only completed rides can be settled")
)

// MaxFareMultiple bounds a driver-supplied final fare relative to the
// estimate shown to the passenger.
const MaxFareMultiple = 2

// transitions maps each target status to the statuses it may be entered from.
var transitions = map[string][]string{
	models.RideDriverAccepted: {models.RideRequested},
	models.RideDriverArrived:  {models.RideDriverAccepted},
	models.RideStarted:        {models.RideDriverArrived},
	models.RideCompleted:      {models.RideStarted},
	models.RideCancelled:      {models.RideRequested, models.RideDriverAccepted, models.RideDriverArrived},
}

// CanTransition reports whether the table allows from → to.
func CanTransition(from, to string) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Wallet is the part of the wallet service rides pay through.
type Wallet interface {
	Balance(ctx context.Context, userID primitive.ObjectID) (float64, error)
	Debit(ctx context.Context, e walletsvc.Entry) (models.WalletTransaction, error)
	Credit(ctx context.Context, e walletsvc.Entry) (models.WalletTransaction, error)
}

// Locations finds candidate drivers and tracks who is occupied.
type Locations interface {
	FindNearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]locationsvc.NearbyDriver, error)
	SetOnRide(ctx context.Context, driverID primitive.ObjectID, onRide bool) error
}

// Subscriptions enforces the driver's daily accept allowance.
type Subscriptions interface {
	IncrementDailyRideRequests(ctx context.Context, driverID primitive.ObjectID) (*models.Subscription, error)
	ReleaseDailyRideRequest(ctx context.Context, subID primitive.ObjectID) error
}

// SettingsSource supplies fares, commission and the search radius.
type SettingsSource interface {
	Get(ctx context.Context) (models.PlatformSettings, error)
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

type Service struct {
	rides     *ridestore.Store
	users     *userstore.Store
	locations Locations
	subs      Subscriptions
	wallet    Wallet
	settings  SettingsSource
	events    Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

func New(rides *ridestore.Store, users *userstore.Store, locations Locations, subs Subscriptions, wallet Wallet, settings SettingsSource, pub Publisher, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		rides:     rides,
		users:     users,
		locations: locations,
		subs:      subs,
		wallet:    wallet,
		settings:  settings,
		events:    pub,
		metrics:   m,
		log:       logger,
		now:       time.Now,
	}
}

/*───────────────────────────────────────────────────────────────────────────*
| Fares                                                                      |
*───────────────────────────────────────────────────────────────────────────*/

// Coordinates is a lat/lng pair with an optional address.
type Coordinates struct {
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng     float64 `json:"lng" validate:"gte=-180,lte=180"`
	Address string  `json:"address" validate:"omitempty,max=300"`
}

func (c Coordinates) place() models.Place {
	return models.Place{Point: models.NewGeoPoint(c.Lat, c.Lng), Address: htmlsanitize.StripTags(c.Address)}
}

// EstimateInput is the fare estimate body.
type EstimateInput struct {
	Pickup  Coordinates `json:"pickup" validate:"required"`
	Dropoff Coordinates `json:"dropoff" validate:"required"`
}

// Estimate is a quoted fare.
type Estimate struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
	Fare        float64 `json:"fare"`
	Currency    string  `json:"currency"`
}

// Fare applies the platform formula:
// max(minimum, base + perKm·km + perMinute·min), rounded to cents.
func Fare(ps models.PlatformSettings, km, minutes float64) float64 {
	f := ps.BaseFare + ps.PerKmRate*km + ps.PerMinuteRate*minutes
	return walletsvc.Round2(math.Max(ps.MinimumFare, f))
}

// EstimateFare quotes a trip from the straight-line distance and the
// configured average speed.
func (s *Service) EstimateFare(ctx context.Context, in EstimateInput) (Estimate, error) {
	if !geo.ValidLatLng(in.Pickup.Lat, in.Pickup.Lng) || !geo.ValidLatLng(in.Dropoff.Lat, in.Dropoff.Lng) {
		return Estimate{}, ErrBadCoordinates
	}
	ps, err := s.settings.Get(ctx)
	if err != nil {
		return Estimate{}, err
	}
	return estimate(ps, in.Pickup.place().Point, in.Dropoff.place().Point), nil
}

func estimate(ps models.PlatformSettings, from, to models.GeoPoint) Estimate {
	km := geo.HaversineKm(from, to)
	var minutes float64
	if ps.AverageSpeedKmh > 0 {
		minutes = km / ps.AverageSpeedKmh * 60
	}
	return Estimate{
		DistanceKm:  math.Round(km*100) / 100,
		DurationMin: math.Round(minutes*10) / 10,
		Fare:        Fare(ps, km, minutes),
		Currency:    ps.Currency,
	}
}

/*───────────────────────────────────────────────────────────────────────────*
| Passenger                                                                  |
*───────────────────────────────────────────────────────────────────────────*/

// RequestInput is the ride request body.
type RequestInput struct {
	Pickup        Coordinates `json:"pickup" validate:"required"`
	Dropoff       Coordinates `json:"dropoff" validate:"required"`
	PaymentMethod string      `json:"payment_method" validate:"omitempty,oneof=cash wallet"`
}

// RequestResult is the new ride plus how many drivers were alerted.
type RequestResult struct {
	Ride            models.Ride `json:"ride"`
	DriversNotified int         `json:"drivers_notified"`
}

// Request creates a ride for the passenger and alerts nearby drivers.
// A passenger may hold only one active ride.
func (s *Service) Request(ctx context.Context, passengerID primitive.ObjectID, in RequestInput) (RequestResult, error) {
	if err := jsonio.Validate(in); err != nil {
		return RequestResult{}, err
	}
	if !geo.ValidLatLng(in.Pickup.Lat, in.Pickup.Lng) || !geo.ValidLatLng(in.Dropoff.Lat, in.Dropoff.Lng) {
		return RequestResult{}, ErrBadCoordinates
	}
	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		method = models.PaymentCash
	}
	if method != models.PaymentCash && method != models.PaymentWallet {
		return RequestResult{}, ErrBadPayment
	}

	ps, err := s.settings.Get(ctx)
	if err != nil {
		return RequestResult{}, err
	}
	pickup, dropoff := in.Pickup.place(), in.Dropoff.place()
	est := estimate(ps, pickup.Point, dropoff.Point)

	if method == models.PaymentWallet {
		bal, err := s.wallet.Balance(ctx, passengerID)
		if err != nil {
			return RequestResult{}, err
		}
		if bal < est.Fare {
			return RequestResult{}, ErrInsufficientFunds
		}
	}

	ride, err := s.rides.Create(ctx, models.Ride{
		PassengerID:   passengerID,
		Pickup:        pickup,
		Dropoff:       dropoff,
		PaymentMethod: method,
		DistanceKm:    est.DistanceKm,
		DurationMin:   est.DurationMin,
		EstimatedFare: est.Fare,
		Currency:      ps.Currency,
	})
	if errors.Is(err, ridestore.ErrPassengerBusy) {
		return RequestResult{}, ErrPassengerBusy
	}
	if err != nil {
		return RequestResult{}, err
	}
	s.metrics.RideTransition(models.RideRequested)

	// Matching is best-effort; the request stands even if the search fails.
	nearby, err := s.locations.FindNearby(ctx, in.Pickup.Lat, in.Pickup.Lng, ps.SearchRadiusKm, 0)
	if err != nil {
		s.log.Warn("nearby driver search failed", zap.String("ride_id", ride.ID.Hex()), zap.Error(err))
	}
	ids := make([]primitive.ObjectID, 0, len(nearby))
	for _, d := range nearby {
		ids = append(ids, d.DriverID)
	}
	if len(ids) > 0 {
		s.events.Publish(ctx, events.RideRequestedEvent{
			RideID:        ride.ID,
			PassengerID:   passengerID,
			PickupAddress: pickup.Address,
			EstimatedFare: ride.EstimatedFare,
			Currency:      ride.Currency,
			DriverIDs:     ids,
		})
	}
	return RequestResult{Ride: ride, DriversNotified: len(ids)}, nil
}

// Active returns the caller's ride in progress, if any.
func (s *Service) Active(ctx context.Context, u models.User) (*models.Ride, error) {
	var (
		r   *models.Ride
		err error
	)
	if u.Role == models.RoleDriver {
		r, err = s.rides.ActiveForDriver(ctx, u.ID)
	} else {
		r, err = s.rides.ActiveForPassenger(ctx, u.ID)
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrRideNotFound
	}
	return r, err
}

/*───────────────────────────────────────────────────────────────────────────*
| Driver                                                                     |
*───────────────────────────────────────────────────────────────────────────*/

// Accept assigns the driver to a requested ride.
//
// The driver's daily allowance is consumed first and handed back if the
// ride can no longer be taken.
func (s *Service) Accept(ctx context.Context, driverID, rideID primitive.ObjectID) (*models.Ride, error) {
	driver, err := s.users.FindByID(ctx, driverID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apierr.NotFound("Driver not found")
	}
	if err != nil {
		return nil, err
	}
	if !driver.DriverVerified {
		return nil, ErrNotVerified
	}
	if _, err := s.rides.ActiveForDriver(ctx, driverID); err == nil {
		return nil, ErrDriverBusy
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}

	sub, err := s.subs.IncrementDailyRideRequests(ctx, driverID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ride, err := s.transition(ctx, rideID, models.RideDriverAccepted, ActorDriver, nil, bson.M{
		"driver_id":   driverID,
		"accepted_at": now,
	})
	if err != nil {
		if sub != nil {
			if rerr := s.subs.ReleaseDailyRideRequest(ctx, sub.ID); rerr != nil {
				s.log.Warn("release ride request allowance failed", zap.String("driver_id", driverID.Hex()), zap.Error(rerr))
			}
		}
		return nil, err
	}
	s.setOnRide(ctx, driverID, true)
	return ride, nil
}

// Arrive records that the driver reached the pickup.
func (s *Service) Arrive(ctx context.Context, driverID, rideID primitive.ObjectID) (*models.Ride, error) {
	return s.transition(ctx, rideID, models.RideDriverArrived, ActorDriver,
		bson.M{"driver_id": driverID}, bson.M{"arrived_at": s.now().UTC()})
}

// Start records that the passenger is on board.
func (s *Service) Start(ctx context.Context, driverID, rideID primitive.ObjectID) (*models.Ride, error) {
	return s.transition(ctx, rideID, models.RideStarted, ActorDriver,
		bson.M{"driver_id": driverID}, bson.M{"started_at": s.now().UTC()})
}

// CompleteInput optionally overrides the fare, e.g. after a detour.
type CompleteInput struct {
	FinalFare *float64 `json:"final_fare" validate:"omitempty,gt=0"`
}

// Complete ends the trip and settles it. A failed settlement is recorded
// on the ride for RetrySettlement and never undoes the completion.
func (s *Service) Complete(ctx context.Context, driverID, rideID primitive.ObjectID, in CompleteInput) (*models.Ride, error) {
	if in.FinalFare != nil && (math.IsNaN(*in.FinalFare) || *in.FinalFare <= 0) {
		return nil, ErrBadFinalFare
	}
	current, err := s.rides.FindOne(ctx, bson.M{"_id": rideID, "driver_id": driverID})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrRideNotFound
	}
	if err != nil {
		return nil, err
	}
	ps, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	fare := current.EstimatedFare
	if in.FinalFare != nil {
		fare = math.Max(ps.MinimumFare, walletsvc.Round2(*in.FinalFare))
		if fare > math.Max(ps.MinimumFare, walletsvc.Round2(current.EstimatedFare*MaxFareMultiple)) {
			return nil, ErrFinalFareTooHigh
		}
	}
	commission, payout := Split(fare, ps.CommissionPercent)

	ride, err := s.transition(ctx, rideID, models.RideCompleted, ActorDriver,
		bson.M{"driver_id": driverID},
		bson.M{
			"final_fare":    fare,
			"commission":    commission,
			"driver_payout": payout,
			"completed_at":  s.now().UTC(),
		})
	if err != nil {
		return nil, err
	}
	s.setOnRide(ctx, driverID, false)

	if err := s.Settle(ctx, ride); err != nil {
		s.log.Error("ride settlement failed", zap.String("ride_id", ride.ID.Hex()), zap.Error(err))
	}
	return ride, nil
}

// Split divides a fare into platform commission and driver payout.
func Split(fare, commissionPercent float64) (commission, payout float64) {
	commission = walletsvc.Round2(fare * commissionPercent / 100)
	return commission, walletsvc.Round2(fare - commission)
}

// Settle posts the ledger entries for a completed ride and then marks it
// settled.
//
// Wallet rides debit the passenger the fare first and credit the driver's
// earnings only once that debit has posted. Cash rides were paid to the
// driver directly, so only the commission is debited from the driver.
// Every entry carries a ride-scoped reference, so settling again after a
// partial failure posts each entry at most once. On failure the ride stays
// unsettled with the error recorded.
func (s *Service) Settle(ctx context.Context, ride *models.Ride) error {
	if ride.Settled {
		return nil
	}
	if ride.Status != models.RideCompleted {
		return ErrNotCompleted
	}
	if ride.DriverID == nil {
		return fmt.Errorf("settle ride %s: no driver", ride.ID.Hex())
	}
	if err := s.postSettlement(ctx, ride); err != nil {
		ride.SettlementError = err.Error()
		if merr := s.rides.MarkSettlementFailed(ctx, ride.ID, ride.SettlementError); merr != nil {
			s.log.Warn("record settlement failure", zap.String("ride_id", ride.ID.Hex()), zap.Error(merr))
		}
		return err
	}
	if _, err := s.rides.MarkSettled(ctx, ride.ID); err != nil {
		return err
	}
	ride.Settled, ride.SettlementError = true, ""
	return nil
}

func (s *Service) postSettlement(ctx context.Context, ride *models.Ride) error {
	ref := "ride:" + ride.ID.Hex()
	rideID := ride.ID

	if ride.PaymentMethod != models.PaymentWallet {
		if ride.Commission <= 0 {
			return nil
		}
		if _, err := s.wallet.Debit(ctx, walletsvc.Entry{
			UserID:      *ride.DriverID,
			Category:    models.CategoryCommission,
			BalanceType: models.BalanceEarnings,
			Amount:      ride.Commission,
			Reference:   ref + ":commission",
			RideID:      &rideID,
			Description: "Platform commission (cash ride)",
		}); err != nil {
			return fmt.Errorf("driver commission: %w", err)
		}
		return nil
	}

	if _, err := s.wallet.Debit(ctx, walletsvc.Entry{
		UserID:      ride.PassengerID,
		Category:    models.CategoryRidePayment,
		BalanceType: models.BalanceWallet,
		Amount:      ride.FinalFare,
		Reference:   ref + ":payment",
		RideID:      &rideID,
		Description: "Ride payment",
	}); err != nil {
		return fmt.Errorf("passenger payment: %w", err)
	}
	if ride.DriverPayout <= 0 {
		return nil
	}
	if _, err := s.wallet.Credit(ctx, walletsvc.Entry{
		UserID:      *ride.DriverID,
		Category:    models.CategoryRideEarning,
		BalanceType: models.BalanceEarnings,
		Amount:      ride.DriverPayout,
		Reference:   ref + ":earning",
		RideID:      &rideID,
		Description: "Ride earnings",
	}); err != nil {
		return fmt.Errorf("driver earning: %w", err)
	}
	return nil
}

// RetrySettlement settles a completed ride whose earlier settlement
// failed. Settled rides are returned unchanged.
func (s *Service) RetrySettlement(ctx context.Context, rideID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rides.FindByID(ctx, rideID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrRideNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.Settle(ctx, ride); err != nil {
		return ride, err
	}
	return ride, nil
}

// RetryUnsettled retries settlement for up to limit completed rides that
// are still unsettled.
func (s *Service) RetryUnsettled(ctx context.Context, limit int64) (settled, failed int, err error) {
	rides, err := s.rides.Unsettled(ctx, limit)
	if err != nil {
		return 0, 0, err
	}
	for i := range rides {
		if ctx.Err() != nil {
			return settled, failed, ctx.Err()
		}
		if serr := s.Settle(ctx, &rides[i]); serr != nil {
			failed++
			s.log.Warn("ride settlement retry failed", zap.String("ride_id", rides[i].ID.Hex()), zap.Error(serr))
			continue
		}
		settled++
	}
	return settled, failed, nil
}

/*───────────────────────────────────────────────────────────────────────────*
| Cancellation                                                               |
*───────────────────────────────────────────────────────────────────────────*/

// CancelInput is the cancellation body.
type CancelInput struct {
	Reason string `json:"reason" validate:"omitempty,max=300"`
}

// Cancel ends a ride that has not started. The caller must be the ride's
// passenger or its assigned driver. A passenger who cancels after the
// driver arrived pays the configured cancellation fee to the driver.
func (s *Service) Cancel(ctx context.Context, caller models.User, rideID primitive.ObjectID, in CancelInput) (*models.Ride, error) {
	actor, owner := ActorPassenger, bson.M{"passenger_id": caller.ID}
	if caller.Role == models.RoleDriver {
		actor, owner = ActorDriver, bson.M{"driver_id": caller.ID}
	}

	filter := bson.M{"_id": rideID}
	for k, v := range owner {
		filter[k] = v
	}
	current, err := s.rides.FindOne(ctx, filter)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrRideNotFound
	}
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, models.RideCancelled) {
		return nil, apierr.BadRequest(fmt.Sprintf("Cannot cancel a ride that is %s", current.Status))
	}

	ps, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	fee := 0.0
	if actor == ActorPassenger && current.Status == models.RideDriverArrived && current.DriverID != nil {
		fee = walletsvc.Round2(ps.CancellationFee)
	}

	reason := htmlsanitize.StripTags(in.Reason)
	set := bson.M{
		"cancelled_by":  actor,
		"cancelled_at":  s.now().UTC(),
		"cancel_reason": reason,
	}
	if fee > 0 {
		set["cancellation_fee"] = fee
	}
	// Pin the observed status so the fee decision cannot go stale.
	owner["status"] = current.Status
	ride, err := s.transition(ctx, rideID, models.RideCancelled, actor, owner, set)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != nil {
		s.setOnRide(ctx, *ride.DriverID, false)
	}
	if fee > 0 {
		s.chargeCancellationFee(ctx, ride, fee)
	}
	return ride, nil
}

// chargeCancellationFee moves the fee from passenger to driver. The fee is
// only credited when the passenger could pay it.
func (s *Service) chargeCancellationFee(ctx context.Context, ride *models.Ride, fee float64) {
	ref := "cancel:" + ride.ID.Hex()
	rideID := ride.ID
	if _, err := s.wallet.Debit(ctx, walletsvc.Entry{
		UserID:      ride.PassengerID,
		Category:    models.CategoryCancellationFee,
		BalanceType: models.BalanceWallet,
		Amount:      fee,
		Reference:   ref + ":fee",
		RideID:      &rideID,
		Description: "Cancellation fee",
	}); err != nil {
		s.log.Warn("cancellation fee not collected", zap.String("ride_id", ride.ID.Hex()), zap.Error(err))
		return
	}
	if _, err := s.wallet.Credit(ctx, walletsvc.Entry{
		UserID:      *ride.DriverID,
		Category:    models.CategoryCancellationFee,
		BalanceType: models.BalanceEarnings,
		Amount:      fee,
		Reference:   ref + ":payout",
		RideID:      &rideID,
		Description: "Cancellation fee",
	}); err != nil {
		s.log.Error("cancellation fee payout failed", zap.String("ride_id", ride.ID.Hex()), zap.Error(err))
	}
}

// CancelStale cancels requests that waited longer than maxAge for a
// driver. Each ride is handled independently; a failure is logged and
// counted without stopping the rest.
func (s *Service) CancelStale(ctx context.Context, maxAge time.Duration) (cancelled, failed int, err error) {
	now := s.now().UTC()
	stale, err := s.rides.StaleRequested(ctx, now.Add(-maxAge))
	if err != nil {
		return 0, 0, err
	}
	for _, r := range stale {
		if ctx.Err() != nil {
			return cancelled, failed, ctx.Err()
		}
		_, terr := s.transition(ctx, r.ID, models.RideCancelled, ActorSystem,
			bson.M{"status": models.RideRequested},
			bson.M{"cancelled_by": ActorSystem, "cancelled_at": now, "cancel_reason": StaleReason})
		switch {
		case terr == nil:
			cancelled++
		case errors.Is(terr, ErrStatusChanged):
			// Accepted or cancelled meanwhile.
		default:
			failed++
			s.log.Warn("stale ride cancel failed", zap.String("ride_id", r.ID.Hex()), zap.Error(terr))
		}
	}
	return cancelled, failed, nil
}

/*───────────────────────────────────────────────────────────────────────────*
| Reads                                                                      |
*───────────────────────────────────────────────────────────────────────────*/

// Get returns a ride visible to u: participants see their own rides and
// admins see all. Anything else reports NotFound.
func (s *Service) Get(ctx context.Context, u models.User, rideID primitive.ObjectID) (*models.Ride, error) {
	r, err := s.rides.FindByID(ctx, rideID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrRideNotFound
	}
	if err != nil {
		return nil, err
	}
	switch {
	case u.Role == models.RoleAdmin:
	case r.PassengerID == u.ID:
	case r.DriverID != nil && *r.DriverID == u.ID:
	default:
		return nil, ErrRideNotFound
	}
	return r, nil
}

// ListForPassenger pages the passenger's rides, newest first.
func (s *Service) ListForPassenger(ctx context.Context, passengerID primitive.ObjectID, status string, p paging.Params) (paging.Page[models.Ride], error) {
	return s.List(ctx, ridestore.ListFilter{PassengerID: &passengerID, Status: status}, p)
}

// ListForDriver pages the driver's rides, newest first.
func (s *Service) ListForDriver(ctx context.Context, driverID primitive.ObjectID, status string, p paging.Params) (paging.Page[models.Ride], error) {
	return s.List(ctx, ridestore.ListFilter{DriverID: &driverID, Status: status}, p)
}

// List pages rides matching f. Admin screens call it directly.
func (s *Service) List(ctx context.Context, f ridestore.ListFilter, p paging.Params) (paging.Page[models.Ride], error) {
	rows, total, err := s.rides.List(ctx, f, p)
	if err != nil {
		return paging.Page[models.Ride]{}, err
	}
	return paging.NewPage(rows, total, p), nil
}

/*───────────────────────────────────────────────────────────────────────────*
| Internals                                                                  |
*───────────────────────────────────────────────────────────────────────────*/

// transition moves rideID to `to` from any status the table allows,
// subject to match, and publishes the change. A match on "status" narrows
// the allowed sources further.
func (s *Service) transition(ctx context.Context, rideID primitive.ObjectID, to, actor string, match, set bson.M) (*models.Ride, error) {
	from := transitions[to]
	if pinned, ok := match["status"].(string); ok {
		if !CanTransition(pinned, to) {
			return nil, ErrStatusChanged
		}
		from = []string{pinned}
		delete(match, "status")
	}

	ride, err := s.rides.Transition(ctx, rideID, from, to, match, set)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return nil, ErrRideNotFound
	case errors.Is(err, ridestore.ErrStatusConflict):
		if len(match) > 0 {
			// Distinguish "not yours" from "wrong status" without leaking
			// other riders' rides.
			q := bson.M{"_id": rideID}
			for k, v := range match {
				q[k] = v
			}
			if ok, _ := s.rides.Exists(ctx, q); !ok {
				return nil, ErrRideNotFound
			}
		}
		return nil, ErrStatusChanged
	case errors.Is(err, ridestore.ErrDriverBusy):
		return nil, ErrDriverBusy
	case err != nil:
		return nil, err
	}

	prev := previousStatus(ride, to)
	s.metrics.RideTransition(to)
	s.events.Publish(ctx, events.RideStatusEvent{
		RideID:      ride.ID,
		PassengerID: ride.PassengerID,
		DriverID:    ride.DriverID,
		From:        prev,
		To:          to,
		Actor:       actor,
	})
	return ride, nil
}

// previousStatus infers where a ride came from using the timestamps the
// forward steps leave behind.
func previousStatus(r *models.Ride, to string) string {
	if to != models.RideCancelled {
		return transitions[to][0]
	}
	switch {
	case r.ArrivedAt != nil:
		return models.RideDriverArrived
	case r.AcceptedAt != nil:
		return models.RideDriverAccepted
	}
	return models.RideRequested
}

func (s *Service) setOnRide(ctx context.Context, driverID primitive.ObjectID, onRide bool) {
	if err := s.locations.SetOnRide(ctx, driverID, onRide); err != nil {
		s.log.Warn("update driver on_ride failed", zap.String("driver_id", driverID.Hex()), zap.Error(err))
	}
}

var _ Subscriptions = (*subscriptionsvc.Service)(nil)
var _ Locations = (*locationsvc.Service)(nil)
