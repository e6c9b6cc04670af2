package evpsvc_test

import (
	"context"
	"sync"
	"testing"
	"time"

	evpsvc "github.com/dalemusser/ridehub/internal/app/services/evps"
	walletsvc "github.com/dalemusser/ridehub/internal/app/services/wallet"
	evpstore "github.com/dalemusser/ridehub/internal/app/store/evps"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	walletstore "github.com/dalemusser/ridehub/internal/app/store/wallets"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/indexes"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/ridehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticSettings struct{ ps models.PlatformSettings }

func (s staticSettings) Get(context.Context) (models.PlatformSettings, error) { return s.ps, nil }

type recorder struct {
	mu  sync.Mutex
	got []events.ExpiryEvent
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ee, ok := e.(events.ExpiryEvent); ok {
		r.got = append(r.got, ee)
	}
}

func setup(t *testing.T) (*evpsvc.Service, *walletsvc.Service, *evpstore.Store, *recorder, *testutil.Fixtures, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	require.NoError(t, indexes.EnsureAll(ctx, db))

	settings := staticSettings{models.DefaultPlatformSettings()}
	wallet := walletsvc.New(db, walletstore.New(db), settings, nil, zap.NewNop())
	store := evpstore.New(db)
	pub := &recorder{}
	svc := evpsvc.New(store, userstore.New(db), wallet, settings, pub, nil, zap.NewNop())
	return svc, wallet, store, pub, testutil.NewFixtures(t, db), ctx
}

func TestPurchase(t *testing.T) {
	svc, wallet, _, _, fx, ctx := setup(t)
	driver := fx.CreateDriver(ctx, "Dana")
	ps := models.DefaultPlatformSettings()

	_, err := svc.Purchase(ctx, driver.ID)
	assert.ErrorIs(t, err, walletsvc.ErrInsufficientFunds)

	_, err = wallet.Deposit(ctx, driver.ID, 100, "")
	require.NoError(t, err)

	evp, err := svc.Purchase(ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EvpActive, evp.Status)
	assert.Equal(t, evpsvc.SourcePurchase, evp.Source)
	assert.Contains(t, evp.PermitNumber, "EVP-")
	assert.WithinDuration(t, time.Now().AddDate(0, 0, ps.EvpValidityDays), evp.EndDate, time.Minute)

	bal, err := wallet.Balance(ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, 100-ps.EvpPrice, bal)

	_, err = svc.Purchase(ctx, driver.ID)
	assert.ErrorIs(t, err, evpsvc.ErrActiveExists)

	cur, err := svc.GetActive(ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, evp.ID, cur.ID)
}

func TestIssueAndRevoke(t *testing.T) {
	svc, _, _, _, fx, ctx := setup(t)
	driver := fx.CreateDriver(ctx, "Dana")
	passenger := fx.CreatePassenger(ctx, "Pat")
	admin := fx.CreateAdmin(ctx, "Ada")

	_, err := svc.Issue(ctx, passenger.ID, 10, admin.ID)
	assert.ErrorIs(t, err, evpsvc.ErrDriverNotFound)

	evp, err := svc.Issue(ctx, driver.ID, 10, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, evpsvc.SourceAdmin, evp.Source)
	require.NotNil(t, evp.IssuedBy)
	assert.Equal(t, admin.ID, *evp.IssuedBy)

	revoked, err := svc.Revoke(ctx, evp.ID, "<b>fraud</b>")
	require.NoError(t, err)
	assert.Equal(t, models.EvpRevoked, revoked.Status)
	assert.Equal(t, "fraud", revoked.RevokeReason)

	_, err = svc.Revoke(ctx, evp.ID, "again")
	assert.ErrorIs(t, err, evpsvc.ErrNotActive)

	_, err = svc.GetActive(ctx, driver.ID)
	assert.ErrorIs(t, err, evpsvc.ErrNotFound)

	page, err := svc.List(ctx, evpstore.ListFilter{DriverID: &driver.ID}, paging.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestRunExpirationSweep_Idempotent(t *testing.T) {
	svc, _, store, pub, fx, ctx := setup(t)
	a := fx.CreateDriver(ctx, "Dana")
	b := fx.CreateDriver(ctx, "Omar")

	old := fx.CreateEvp(ctx, a.ID, models.EvpActive, time.Now().Add(-time.Minute))
	soon := fx.CreateEvp(ctx, b.ID, models.EvpActive, time.Now().Add(36*time.Hour))

	res, err := svc.RunExpirationSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, evpsvc.SweepResult{Expiring: 1, Expired: 1}, res)

	got, err := store.FindByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EvpExpired, got.Status)
	still, err := store.FindByID(ctx, soon.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EvpActive, still.Status)

	res, err = svc.RunExpirationSweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Expired)

	expired := 0
	for _, e := range pub.got {
		if e.Expired() {
			expired++
			assert.Equal(t, a.ID, e.DriverID)
		}
	}
	assert.Equal(t, 1, expired)
}
