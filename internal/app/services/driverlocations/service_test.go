package locationsvc_test

import (
	"context"
	"testing"

	locationsvc "github.com/dalemusser/ridehub/internal/app/services/driverlocations"
	driverlocationstore "github.com/dalemusser/ridehub/internal/app/store/driverlocations"
	"github.com/dalemusser/ridehub/internal/app/system/indexes"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/ridehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticSettings struct{ ps models.PlatformSettings }

func (s staticSettings) Get(context.Context) (models.PlatformSettings, error) { return s.ps, nil }

func TestAvailabilityAndNearby(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	require.NoError(t, indexes.EnsureAll(ctx, db))

	svc := locationsvc.New(driverlocationstore.New(db), staticSettings{models.DefaultPlatformSettings()}, zap.NewNop())
	fx := testutil.NewFixtures(t, db)

	near := fx.CreateDriver(ctx, "Near Driver")
	near.DriverVerified = true
	far := fx.CreateDriver(ctx, "Far Driver")
	far.DriverVerified = true
	unverified := fx.CreateDriver(ctx, "New Driver")

	_, err := svc.SetAvailability(ctx, near, true)
	assert.ErrorIs(t, err, locationsvc.ErrNoLocation)

	_, err = svc.UpdateLocation(ctx, near.ID, 40.7130, -74.0050, 90)
	require.NoError(t, err)
	_, err = svc.UpdateLocation(ctx, far.ID, 41.5, -74.0, 0)
	require.NoError(t, err)
	_, err = svc.UpdateLocation(ctx, unverified.ID, 40.7129, -74.0061, 0)
	require.NoError(t, err)

	_, err = svc.SetAvailability(ctx, unverified, true)
	assert.ErrorIs(t, err, locationsvc.ErrNotVerified)

	for _, d := range []models.User{near, far} {
		_, err := svc.SetAvailability(ctx, d, true)
		require.NoError(t, err)
	}

	hits, err := svc.FindNearby(ctx, 40.7128, -74.0060, 0, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, near.ID, hits[0].DriverID)
	assert.Less(t, hits[0].DistanceKm, 0.2)

	require.NoError(t, svc.SetOnRide(ctx, near.ID, true))
	hits, err = svc.FindNearby(ctx, 40.7128, -74.0060, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, hits, "drivers on a ride are not offered")

	_, err = svc.UpdateLocation(ctx, near.ID, 200, 0, 0)
	assert.ErrorIs(t, err, locationsvc.ErrBadCoordinates)
}
