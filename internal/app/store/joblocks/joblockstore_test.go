package joblockstore_test

import (
	"testing"
	"time"

	joblockstore "github.com/dalemusser/ridehub/internal/app/store/joblocks"
	"github.com/dalemusser/ridehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LeaseExclusive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := joblockstore.New(db)
	slot1 := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)
	slot2 := slot1.Add(5 * time.Minute)

	ok, err := store.TryAcquire(ctx, "sweep", "a", slot1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TryAcquire(ctx, "sweep", "b", slot2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "b must not take a live lease held by a")

	ok, err = store.TryAcquire(ctx, "sweep", "a", slot2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "owner may renew for a later slot")

	require.NoError(t, store.Release(ctx, "sweep", "a"))
	ok, err = store.TryAcquire(ctx, "sweep", "b", slot2.Add(5*time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released lease is free for the next slot")
}

func TestStore_SlotClaimedOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := joblockstore.New(db)
	slot := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)

	ok, err := store.TryAcquire(ctx, "evp-expiration", "a", slot, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Release(ctx, "evp-expiration", "a"))

	ok, err = store.TryAcquire(ctx, "evp-expiration", "b", slot, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a released lease must not reopen the same slot")

	ok, err = store.TryAcquire(ctx, "evp-expiration", "a", slot, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "the owner cannot rerun its own slot")

	ok, err = store.TryAcquire(ctx, "evp-expiration", "b", slot.Add(-24*time.Hour), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "earlier slots are never claimed")

	ok, err = store.TryAcquire(ctx, "evp-expiration", "b", slot.Add(24*time.Hour), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_ExpiredLeaseIsTaken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := joblockstore.New(db)
	slot := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)

	ok, err := store.TryAcquire(ctx, "cleanup", "a", slot, time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(20 * time.Millisecond)

	ok, err = store.TryAcquire(ctx, "cleanup", "b", slot.Add(time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
