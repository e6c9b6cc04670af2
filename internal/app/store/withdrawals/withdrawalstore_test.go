package withdrawalstore_test

import (
	"errors"
	"testing"
	"time"

	withdrawalstore "github.com/dalemusser/ridehub/internal/app/store/withdrawals"
	"github.com/dalemusser/ridehub/internal/app/system/indexes"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/ridehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_OnePendingPerDriver(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	require.NoError(t, indexes.EnsureAll(ctx, db))
	store := withdrawalstore.New(db)

	driver := primitive.NewObjectID()
	w, err := store.Create(ctx, models.WithdrawalRequest{DriverID: driver, Amount: 20})
	require.NoError(t, err)

	_, err = store.Create(ctx, models.WithdrawalRequest{DriverID: driver, Amount: 5})
	assert.True(t, errors.Is(err, withdrawalstore.ErrPendingExists))

	_, err = store.Decide(ctx, w.ID, models.WithdrawalPending, models.WithdrawalRejected, primitive.NewObjectID(), "wrong account", nil)
	require.NoError(t, err)

	// Deciding twice fails; a new request is now allowed.
	_, err = store.Decide(ctx, w.ID, models.WithdrawalPending, models.WithdrawalApproved, primitive.NewObjectID(), "", nil)
	assert.True(t, errors.Is(err, withdrawalstore.ErrAlreadyDecided))
	_, err = store.Create(ctx, models.WithdrawalRequest{DriverID: driver, Amount: 5})
	assert.NoError(t, err)
}

func TestStore_ClaimIsExclusive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	require.NoError(t, indexes.EnsureAll(ctx, db))
	store := withdrawalstore.New(db)

	w, err := store.Create(ctx, models.WithdrawalRequest{DriverID: primitive.NewObjectID(), Amount: 20})
	require.NoError(t, err)
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	fresh := time.Now().UTC().Add(-time.Minute)

	got, err := store.Claim(ctx, w.ID, a, fresh)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalProcessing, got.Status)
	require.NotNil(t, got.ClaimedBy)
	assert.Equal(t, a, *got.ClaimedBy)

	// A live claim blocks other reviewers and rejection.
	_, err = store.Claim(ctx, w.ID, b, fresh)
	assert.True(t, errors.Is(err, withdrawalstore.ErrAlreadyDecided))
	_, err = store.Decide(ctx, w.ID, models.WithdrawalPending, models.WithdrawalRejected, b, "no", nil)
	assert.True(t, errors.Is(err, withdrawalstore.ErrAlreadyDecided))
	// Only the holder can decide from processing.
	_, err = store.Decide(ctx, w.ID, models.WithdrawalProcessing, models.WithdrawalApproved, b, "", nil)
	assert.True(t, errors.Is(err, withdrawalstore.ErrAlreadyDecided))

	// Once stale, the claim can be taken over.
	got, err = store.Claim(ctx, w.ID, b, time.Now().UTC().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, b, *got.ClaimedBy)

	// Release by the holder returns it to pending.
	require.NoError(t, store.Release(ctx, w.ID, b))
	got, err = store.FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPending, got.Status)
	assert.Nil(t, got.ClaimedBy)
}
