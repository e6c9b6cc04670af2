package ridesvc_test

import (
	"context"
	"sync"
	"testing"
	"time"

	locationsvc "github.com/dalemusser/ridehub/internal/app/services/driverlocations"
	ridesvc "github.com/dalemusser/ridehub/internal/app/services/rides"
	subscriptionsvc "github.com/dalemusser/ridehub/internal/app/services/subscriptions"
	walletsvc "github.com/dalemusser/ridehub/internal/app/services/wallet"
	driverlocationstore "github.com/dalemusser/ridehub/internal/app/store/driverlocations"
	ridestore "github.com/dalemusser/ridehub/internal/app/store/rides"
	subscriptionstore "github.com/dalemusser/ridehub/internal/app/store/subscriptions"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	walletstore "github.com/dalemusser/ridehub/internal/app/store/wallets"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/indexes"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/ridehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type staticSettings struct{ ps models.PlatformSettings }

func (s staticSettings) Get(context.Context) (models.PlatformSettings, error) { return s.ps, nil }

type recorder struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
}

func (r *recorder) statusChanges() []events.RideStatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.RideStatusEvent
	for _, e := range r.got {
		if se, ok := e.(events.RideStatusEvent); ok {
			out = append(out, se)
		}
	}
	return out
}

type env struct {
	svc    *ridesvc.Service
	rides  *ridestore.Store
	users  *userstore.Store
	subs   *subscriptionstore.Store
	wallet *walletsvc.Service
	pub    *recorder
	fx     *testutil.Fixtures
	ctx    context.Context
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	require.NoError(t, indexes.EnsureAll(ctx, db))

	settings := staticSettings{models.DefaultPlatformSettings()}
	pub := &recorder{}
	wallet := walletsvc.New(db, walletstore.New(db), settings, nil, zap.NewNop())
	subs := subscriptionstore.New(db)
	subSvc := subscriptionsvc.New(subs, wallet, settings, pub, nil, zap.NewNop())
	locations := locationsvc.New(driverlocationstore.New(db), settings, zap.NewNop())
	rides := ridestore.New(db)
	users := userstore.New(db)

	svc := ridesvc.New(rides, users, locations, subSvc, wallet, settings, pub, nil, zap.NewNop())
	return env{svc: svc, rides: rides, users: users, subs: subs, wallet: wallet, pub: pub, fx: testutil.NewFixtures(t, db), ctx: ctx}
}

func (e env) verifiedDriver(t *testing.T, name string) models.User {
	t.Helper()
	d := e.fx.CreateDriver(e.ctx, name)
	require.NoError(t, e.users.SetDriverVerified(e.ctx, d.ID, true))
	d.DriverVerified = true
	return d
}

func downtownTrip(method string) ridesvc.RequestInput {
	return ridesvc.RequestInput{
		Pickup:        ridesvc.Coordinates{Lat: 40.7128, Lng: -74.0060, Address: "City Hall"},
		Dropoff:       ridesvc.Coordinates{Lat: 40.7580, Lng: -73.9855, Address: "Times Square"},
		PaymentMethod: method,
	}
}

func TestFare_AppliesMinimumAndRates(t *testing.T) {
	ps := models.DefaultPlatformSettings()
	assert.Equal(t, ps.MinimumFare, ridesvc.Fare(ps, 0, 0))
	// 2.5 + 1.2*10 + 0.25*20 = 19.5
	assert.InDelta(t, 19.5, ridesvc.Fare(ps, 10, 20), 1e-9)
}

func TestSplit(t *testing.T) {
	c, p := ridesvc.Split(20, 15)
	assert.InDelta(t, 3.0, c, 1e-9)
	assert.InDelta(t, 17.0, p, 1e-9)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, ridesvc.CanTransition(models.RideRequested, models.RideDriverAccepted))
	assert.True(t, ridesvc.CanTransition(models.RideDriverArrived, models.RideCancelled))
	assert.False(t, ridesvc.CanTransition(models.RideStarted, models.RideCancelled))
	assert.False(t, ridesvc.CanTransition(models.RideRequested, models.RideStarted))
	assert.False(t, ridesvc.CanTransition(models.RideCompleted, models.RideRequested))
}

func TestEstimateFare(t *testing.T) {
	e := setup(t)
	in := downtownTrip("")
	est, err := e.svc.EstimateFare(e.ctx, ridesvc.EstimateInput{Pickup: in.Pickup, Dropoff: in.Dropoff})
	require.NoError(t, err)
	assert.InDelta(t, 5.33, est.DistanceKm, 0.05)
	assert.InDelta(t, 10.7, est.DurationMin, 0.2)
	assert.Equal(t, "USD", est.Currency)
	assert.Greater(t, est.Fare, models.DefaultPlatformSettings().MinimumFare)

	_, err = e.svc.EstimateFare(e.ctx, ridesvc.EstimateInput{
		Pickup:  ridesvc.Coordinates{Lat: 91, Lng: 0},
		Dropoff: in.Dropoff,
	})
	assert.ErrorIs(t, err, ridesvc.ErrBadCoordinates)
}

func TestRequest_OneActiveRidePerPassenger(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")

	res, err := e.svc.Request(e.ctx, p.ID, downtownTrip(""))
	require.NoError(t, err)
	assert.Equal(t, models.RideRequested, res.Ride.Status)
	assert.Equal(t, models.PaymentCash, res.Ride.PaymentMethod)
	assert.Zero(t, res.DriversNotified)

	_, err = e.svc.Request(e.ctx, p.ID, downtownTrip(""))
	assert.ErrorIs(t, err, ridesvc.ErrPassengerBusy)
}

func TestRequest_WalletNeedsBalance(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")

	_, err := e.svc.Request(e.ctx, p.ID, downtownTrip(models.PaymentWallet))
	assert.ErrorIs(t, err, ridesvc.ErrInsufficientFunds)

	_, err = e.wallet.Deposit(e.ctx, p.ID, 50, "")
	require.NoError(t, err)
	res, err := e.svc.Request(e.ctx, p.ID, downtownTrip(models.PaymentWallet))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentWallet, res.Ride.PaymentMethod)
}

func TestAccept_RequiresVerifiedDriver(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")
	d := e.fx.CreateDriver(e.ctx, "Dana")

	res, err := e.svc.Request(e.ctx, p.ID, downtownTrip(""))
	require.NoError(t, err)
	_, err = e.svc.Accept(e.ctx, d.ID, res.Ride.ID)
	assert.ErrorIs(t, err, ridesvc.ErrNotVerified)
}

func TestAccept_ConcurrentDriversOnlyOneWins(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")
	d1 := e.verifiedDriver(t, "Dana")
	d2 := e.verifiedDriver(t, "Drew")

	res, err := e.svc.Request(e.ctx, p.ID, downtownTrip(""))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, d := range []models.User{d1, d2} {
		wg.Add(1)
		go func(i int, d models.User) {
			defer wg.Done()
			_, errs[i] = e.svc.Accept(e.ctx, d.ID, res.Ride.ID)
		}(i, d)
	}
	wg.Wait()

	wins := 0
	loser := d1
	for i, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ridesvc.ErrStatusChanged)
		loser = []models.User{d1, d2}[i]
	}
	require.Equal(t, 1, wins)

	// The loser's allowance was handed back.
	sub, err := e.subs.Active(e.ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.DailyRideRequests)
}

func TestAccept_DriverWithActiveRideIsBusy(t *testing.T) {
	e := setup(t)
	d := e.verifiedDriver(t, "Dana")
	p1 := e.fx.CreatePassenger(e.ctx, "Pat")
	p2 := e.fx.CreatePassenger(e.ctx, "Sam")

	r1, err := e.svc.Request(e.ctx, p1.ID, downtownTrip(""))
	require.NoError(t, err)
	r2, err := e.svc.Request(e.ctx, p2.ID, downtownTrip(""))
	require.NoError(t, err)

	_, err = e.svc.Accept(e.ctx, d.ID, r1.Ride.ID)
	require.NoError(t, err)
	_, err = e.svc.Accept(e.ctx, d.ID, r2.Ride.ID)
	assert.ErrorIs(t, err, ridesvc.ErrDriverBusy)
}

func TestLifecycle_CashRideDebitsCommission(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")
	d := e.verifiedDriver(t, "Dana")
	_, err := e.wallet.Deposit(e.ctx, d.ID, 20, "")
	require.NoError(t, err)

	res, err := e.svc.Request(e.ctx, p.ID, downtownTrip(""))
	require.NoError(t, err)
	id := res.Ride.ID

	_, err = e.svc.Start(e.ctx, d.ID, id)
	assert.ErrorIs(t, err, ridesvc.ErrStatusChanged, "cannot skip accept and arrive")

	_, err = e.svc.Accept(e.ctx, d.ID, id)
	require.NoError(t, err)
	_, err = e.svc.Arrive(e.ctx, d.ID, id)
	require.NoError(t, err)
	_, err = e.svc.Start(e.ctx, d.ID, id)
	require.NoError(t, err)

	fare := 20.0
	done, err := e.svc.Complete(e.ctx, d.ID, id, ridesvc.CompleteInput{FinalFare: &fare})
	require.NoError(t, err)
	assert.Equal(t, models.RideCompleted, done.Status)
	assert.Equal(t, 20.0, done.FinalFare)

	stored, err := e.rides.FindByID(e.ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.Settled)
	assert.False(t, stored.Active)
	assert.InDelta(t, 3.0, stored.Commission, 1e-9)
	assert.InDelta(t, 17.0, stored.DriverPayout, 1e-9)

	bal, err := e.wallet.Balance(e.ctx, d.ID)
	require.NoError(t, err)
	assert.InDelta(t, 17.0, bal, 1e-9)

	var tos []string
	for _, ev := range e.pub.statusChanges() {
		tos = append(tos, ev.To)
	}
	assert.Equal(t, []string{
		models.RideDriverAccepted, models.RideDriverArrived, models.RideStarted, models.RideCompleted,
	}, tos)

	// Settling again is a no-op.
	require.NoError(t, e.svc.Settle(e.ctx, stored))
	bal, err = e.wallet.Balance(e.ctx, d.ID)
	require.NoError(t, err)
	assert.InDelta(t, 17.0, bal, 1e-9)
}

func TestLifecycle_WalletRidePaysDriver(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")
	d := e.verifiedDriver(t, "Dana")
	_, err := e.wallet.Deposit(e.ctx, p.ID, 100, "")
	require.NoError(t, err)

	res, err := e.svc.Request(e.ctx, p.ID, downtownTrip(models.PaymentWallet))
	require.NoError(t, err)
	id := res.Ride.ID
	_, err = e.svc.Accept(e.ctx, d.ID, id)
	require.NoError(t, err)
	_, err = e.svc.Arrive(e.ctx, d.ID, id)
	require.NoError(t, err)
	_, err = e.svc.Start(e.ctx, d.ID, id)
	require.NoError(t, err)
	done, err := e.svc.Complete(e.ctx, d.ID, id, ridesvc.CompleteInput{})
	require.NoError(t, err)
	assert.Equal(t, res.Ride.EstimatedFare, done.FinalFare)

	commission, payout := ridesvc.Split(done.FinalFare, 15)
	pBal, err := e.wallet.Balance(e.ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100-done.FinalFare, pBal, 0.001)
	dBal, err := e.wallet.Balance(e.ctx, d.ID)
	require.NoError(t, err)
	assert.InDelta(t, payout, dBal, 0.001)
	assert.InDelta(t, done.FinalFare, commission+payout, 0.001)
}

// startedWalletRide funds the passenger, then drains the wallet down to
// balance once the ride is requested.
func (e env) startedWalletRide(t *testing.T, p, d models.User, balance float64) *models.Ride {
	t.Helper()
	_, err := e.wallet.Deposit(e.ctx, p.ID, 100, "")
	require.NoError(t, err)
	res, err := e.svc.Request(e.ctx, p.ID, downtownTrip(models.PaymentWallet))
	require.NoError(t, err)
	if balance < 100 {
		_, err = e.wallet.Debit(e.ctx, walletsvc.Entry{
			UserID:   p.ID,
			Category: models.CategoryAdjustment,
			Amount:   100 - balance,
		})
		require.NoError(t, err)
	}

	id := res.Ride.ID
	_, err = e.svc.Accept(e.ctx, d.ID, id)
	require.NoError(t, err)
	_, err = e.svc.Arrive(e.ctx, d.ID, id)
	require.NoError(t, err)
	_, err = e.svc.Start(e.ctx, d.ID, id)
	require.NoError(t, err)
	return &res.Ride
}

func TestSettle_InsufficientFundsDoesNotPayDriver(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")
	d := e.verifiedDriver(t, "Dana")
	ride := e.startedWalletRide(t, p, d, 1)

	done, err := e.svc.Complete(e.ctx, d.ID, ride.ID, ridesvc.CompleteInput{})
	require.NoError(t, err, "completion stands when settlement fails")
	assert.Equal(t, models.RideCompleted, done.Status)
	assert.False(t, done.Settled)
	assert.Contains(t, done.SettlementError, "passenger payment")

	dBal, err := e.wallet.Balance(e.ctx, d.ID)
	require.NoError(t, err)
	assert.Zero(t, dBal, "driver must not be credited without the passenger debit")
	pBal, err := e.wallet.Balance(e.ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pBal, 1e-9)

	stored, err := e.rides.FindByID(e.ctx, ride.ID)
	require.NoError(t, err)
	assert.False(t, stored.Settled)
	assert.NotEmpty(t, stored.SettlementError)
	assert.InDelta(t, done.FinalFare, stored.Commission+stored.DriverPayout, 0.001)

	// Retrying while the passenger is still short fails the same way.
	_, err = e.svc.RetrySettlement(e.ctx, ride.ID)
	assert.ErrorIs(t, err, walletsvc.ErrInsufficientFunds)
	settled, failed, err := e.svc.RetryUnsettled(e.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, settled)
	assert.Equal(t, 1, failed)
	dBal, err = e.wallet.Balance(e.ctx, d.ID)
	require.NoError(t, err)
	assert.Zero(t, dBal)
}

func TestRetrySettlement_PaysOnceAfterTopUp(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")
	d := e.verifiedDriver(t, "Dana")
	ride := e.startedWalletRide(t, p, d, 1)

	done, err := e.svc.Complete(e.ctx, d.ID, ride.ID, ridesvc.CompleteInput{})
	require.NoError(t, err)
	require.False(t, done.Settled)

	_, err = e.wallet.Deposit(e.ctx, p.ID, 50, "")
	require.NoError(t, err)

	settled, failed, err := e.svc.RetryUnsettled(e.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	assert.Equal(t, 0, failed)

	again, err := e.svc.RetrySettlement(e.ctx, ride.ID)
	require.NoError(t, err)
	assert.True(t, again.Settled)
	assert.Empty(t, again.SettlementError)

	_, payout := ridesvc.Split(done.FinalFare, 15)
	pBal, err := e.wallet.Balance(e.ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 51-done.FinalFare, pBal, 0.001)
	dBal, err := e.wallet.Balance(e.ctx, d.ID)
	require.NoError(t, err)
	assert.InDelta(t, payout, dBal, 0.001)

	settled, failed, err = e.svc.RetryUnsettled(e.ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, settled+failed)
}

func TestRetrySettlement_Errors(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")

	_, err := e.svc.RetrySettlement(e.ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ridesvc.ErrRideNotFound)

	res, err := e.svc.Request(e.ctx, p.ID, downtownTrip(""))
	require.NoError(t, err)
	_, err = e.svc.RetrySettlement(e.ctx, res.Ride.ID)
	assert.ErrorIs(t, err, ridesvc.ErrNotCompleted)
}

func TestComplete_CapsFinalFare(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")
	d := e.verifiedDriver(t, "Dana")
	ride := e.startedWalletRide(t, p, d, 100)

	tooHigh := ride.EstimatedFare*ridesvc.MaxFareMultiple + 1
	_, err := e.svc.Complete(e.ctx, d.ID, ride.ID, ridesvc.CompleteInput{FinalFare: &tooHigh})
	assert.ErrorIs(t, err, ridesvc.ErrFinalFareTooHigh)

	stored, err := e.rides.FindByID(e.ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStarted, stored.Status)

	atCap := ride.EstimatedFare * ridesvc.MaxFareMultiple
	done, err := e.svc.Complete(e.ctx, d.ID, ride.ID, ridesvc.CompleteInput{FinalFare: &atCap})
	require.NoError(t, err)
	assert.InDelta(t, atCap, done.FinalFare, 0.01)
	assert.True(t, done.Settled)
}

func TestArrive_OtherDriverSeesNotFound(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")
	d := e.verifiedDriver(t, "Dana")
	other := e.verifiedDriver(t, "Drew")

	res, err := e.svc.Request(e.ctx, p.ID, downtownTrip(""))
	require.NoError(t, err)
	_, err = e.svc.Accept(e.ctx, d.ID, res.Ride.ID)
	require.NoError(t, err)

	_, err = e.svc.Arrive(e.ctx, other.ID, res.Ride.ID)
	assert.ErrorIs(t, err, ridesvc.ErrRideNotFound)
}

func TestCancel_PassengerAfterArrivalPaysFee(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")
	d := e.verifiedDriver(t, "Dana")
	_, err := e.wallet.Deposit(e.ctx, p.ID, 10, "")
	require.NoError(t, err)

	res, err := e.svc.Request(e.ctx, p.ID, downtownTrip(""))
	require.NoError(t, err)
	_, err = e.svc.Accept(e.ctx, d.ID, res.Ride.ID)
	require.NoError(t, err)
	_, err = e.svc.Arrive(e.ctx, d.ID, res.Ride.ID)
	require.NoError(t, err)

	r, err := e.svc.Cancel(e.ctx, p, res.Ride.ID, ridesvc.CancelInput{Reason: "changed plans"})
	require.NoError(t, err)
	assert.Equal(t, models.RideCancelled, r.Status)
	assert.Equal(t, ridesvc.ActorPassenger, r.CancelledBy)
	assert.Equal(t, 3.0, r.CancellationFee)

	pBal, err := e.wallet.Balance(e.ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, pBal, 1e-9)
	dBal, err := e.wallet.Balance(e.ctx, d.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, dBal, 1e-9)

	// The passenger is free to book again.
	_, err = e.svc.Request(e.ctx, p.ID, downtownTrip(""))
	assert.NoError(t, err)
}

func TestCancel_NoFeeBeforeArrivalAndNotAfterStart(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")
	d := e.verifiedDriver(t, "Dana")

	res, err := e.svc.Request(e.ctx, p.ID, downtownTrip(""))
	require.NoError(t, err)
	_, err = e.svc.Accept(e.ctx, d.ID, res.Ride.ID)
	require.NoError(t, err)

	r, err := e.svc.Cancel(e.ctx, d, res.Ride.ID, ridesvc.CancelInput{})
	require.NoError(t, err)
	assert.Equal(t, ridesvc.ActorDriver, r.CancelledBy)
	assert.Zero(t, r.CancellationFee)

	started := e.fx.CreateRide(e.ctx, p.ID, &d.ID, models.RideStarted)
	_, err = e.svc.Cancel(e.ctx, p, started.ID, ridesvc.CancelInput{})
	require.Error(t, err)
}

func TestCancelStale(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")
	old := e.fx.CreateRide(e.ctx, p.ID, nil, models.RideRequested)
	_, err := e.rides.Collection().UpdateByID(e.ctx, old.ID,
		bson.M{"$set": bson.M{"created_at": time.Now().UTC().Add(-time.Hour)}})
	require.NoError(t, err)

	p2 := e.fx.CreatePassenger(e.ctx, "Sam")
	fresh := e.fx.CreateRide(e.ctx, p2.ID, nil, models.RideRequested)

	n, failed, err := e.svc.CancelStale(e.ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, failed)

	got, err := e.rides.FindByID(e.ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideCancelled, got.Status)
	assert.Equal(t, ridesvc.ActorSystem, got.CancelledBy)

	got, err = e.rides.FindByID(e.ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideRequested, got.Status)

	n, _, err = e.svc.CancelStale(e.ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGet_VisibleToParticipantsAndAdmins(t *testing.T) {
	e := setup(t)
	p := e.fx.CreatePassenger(e.ctx, "Pat")
	d := e.fx.CreateDriver(e.ctx, "Dana")
	stranger := e.fx.CreatePassenger(e.ctx, "Sam")
	admin := e.fx.CreateAdmin(e.ctx, "Ada")
	r := e.fx.CreateRide(e.ctx, p.ID, &d.ID, models.RideCompleted)

	for _, u := range []models.User{p, d, admin} {
		_, err := e.svc.Get(e.ctx, u, r.ID)
		assert.NoError(t, err, u.FullName)
	}
	_, err := e.svc.Get(e.ctx, stranger, r.ID)
	assert.ErrorIs(t, err, ridesvc.ErrRideNotFound)

	page, err := e.svc.ListForDriver(e.ctx, d.ID, "", paging.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}
