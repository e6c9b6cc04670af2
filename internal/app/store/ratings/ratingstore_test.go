package ratingstore_test

import (
	"errors"
	"sync"
	"testing"

	ratingstore "github.com/dalemusser/ridehub/internal/app/store/ratings"
	"github.com/dalemusser/ridehub/internal/app/system/indexes"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/ridehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_ConcurrentDuplicatesRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := ratingstore.New(db)

	ride, rater, rated := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Create(ctx, models.Rating{RideID: ride, RaterID: rater, RatedID: rated, Stars: 5})
		}(i)
	}
	wg.Wait()

	ok, dup := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ratingstore.ErrAlreadyRated):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Fatalf("expected 1 success and %d duplicates, got %d/%d", n-1, ok, dup)
	}
}

func TestStore_Summary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := ratingstore.New(db)

	rated := primitive.NewObjectID()
	for _, stars := range []int{5, 4, 4, 2} {
		if _, err := store.Create(ctx, models.Rating{RideID: primitive.NewObjectID(), RaterID: primitive.NewObjectID(), RatedID: rated, Stars: stars}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	sum, err := store.Summary(ctx, rated)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Count != 4 || sum.Average != 3.75 {
		t.Errorf("expected count 4 avg 3.75, got %d %v", sum.Count, sum.Average)
	}
	if sum.Histogram[4] != 2 || sum.Histogram[1] != 0 {
		t.Errorf("unexpected histogram %v", sum.Histogram)
	}

	empty, err := store.Summary(ctx, primitive.NewObjectID())
	if err != nil || empty.Count != 0 || empty.Average != 0 {
		t.Errorf("expected empty summary, got %+v %v", empty, err)
	}
}
