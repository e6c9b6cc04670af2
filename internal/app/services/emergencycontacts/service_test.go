package contactsvc_test

import (
	"fmt"
	"sync"
	"testing"

	contactsvc "github.com/dalemusser/ridehub/internal/app/services/emergencycontacts"
	contactstore "github.com/dalemusser/ridehub/internal/app/store/emergencycontacts"
	"github.com/dalemusser/ridehub/internal/app/system/indexes"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/ridehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newService(t *testing.T) *contactsvc.Service {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	require.NoError(t, indexes.EnsureAll(ctx, db))
	return contactsvc.New(contactstore.New(db), zap.NewNop())
}

func TestAdd_NormalizesAndRejectsDuplicates(t *testing.T) {
	svc := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	user := primitive.NewObjectID()

	c, err := svc.Add(ctx, user, contactsvc.Input{Name: " <b>Mom</b> ", Phone: "+1 (555) 010-2030", Relationship: "parent"})
	require.NoError(t, err)
	assert.Equal(t, "Mom", c.Name)
	assert.Equal(t, "+15550102030", c.Phone)

	_, err = svc.Add(ctx, user, contactsvc.Input{Name: "Also Mom", Phone: "+15550102030"})
	assert.ErrorIs(t, err, contactsvc.ErrDuplicatePhone)

	_, err = svc.Add(ctx, user, contactsvc.Input{Name: "Short", Phone: "12"})
	assert.ErrorIs(t, err, contactsvc.ErrInvalidPhone)
}

func TestAdd_LimitIsEnforcedUnderConcurrency(t *testing.T) {
	svc := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	user := primitive.NewObjectID()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.Add(ctx, user, contactsvc.Input{Name: fmt.Sprintf("c%d", i), Phone: fmt.Sprintf("+1555000%04d", i)})
		}(i)
	}
	wg.Wait()

	list, err := svc.List(ctx, user)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(list), models.MaxEmergencyContacts)

	for len(list) < models.MaxEmergencyContacts {
		c, err := svc.Add(ctx, user, contactsvc.Input{Name: "fill", Phone: fmt.Sprintf("+1666000%04d", len(list))})
		require.NoError(t, err)
		list = append(list, c)
	}
	_, err = svc.Add(ctx, user, contactsvc.Input{Name: "one too many", Phone: "+17770001111"})
	assert.ErrorIs(t, err, contactsvc.ErrLimitReached)
}

func TestUpdateDelete_Ownership(t *testing.T) {
	svc := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner, other := primitive.NewObjectID(), primitive.NewObjectID()

	c, err := svc.Add(ctx, owner, contactsvc.Input{Name: "Sis", Phone: "+15551234567"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, other, c.ID, contactsvc.Input{Name: "x", Phone: "+15559999999"})
	assert.ErrorIs(t, err, contactsvc.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, other, c.ID), contactsvc.ErrNotFound)

	up, err := svc.Update(ctx, owner, c.ID, contactsvc.Input{Name: "Sister", Phone: "+15551234567", Relationship: "sibling"})
	require.NoError(t, err)
	assert.Equal(t, "Sister", up.Name)

	require.NoError(t, svc.Delete(ctx, owner, c.ID))
	list, _ := svc.List(ctx, owner)
	assert.Empty(t, list)
}
