package usersvc_test

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	usersvc "github.com/dalemusser/ridehub/internal/app/services/users"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	rolestore "github.com/dalemusser/ridehub/internal/app/store/roles"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/indexes"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/ridehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type recorder struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
}

func (r *recorder) last(topic string) events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.got) - 1; i >= 0; i-- {
		if r.got[i].Topic() == topic {
			return r.got[i]
		}
	}
	return nil
}

type env struct {
	svc    *usersvc.Service
	users  *userstore.Store
	roles  *rolestore.Store
	audits *audit.Store
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

	users := userstore.New(db)
	roles := rolestore.New(db)
	audits := audit.New(db)
	pub := &recorder{}
	resets := auth.NewResetTokens("0123456789abcdef0123456789abcdef", time.Hour)
	svc := usersvc.New(users, roles, audits, resets, pub, "https://ride.test/", zap.NewNop())
	return env{svc: svc, users: users, roles: roles, audits: audits, pub: pub, fx: testutil.NewFixtures(t, db), ctx: ctx}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	e := setup(t)

	u, err := e.svc.Register(e.ctx, usersvc.RegisterInput{
		FullName: "  Dana   Driver ", Email: "Dana@Example.com", Password: "s3cret-pass", Role: "Driver",
		Vehicle: &usersvc.VehicleInput{Make: "Kia", Model: "Niro", Plate: "ab 123"},
	})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", u.Email)
	assert.Equal(t, models.RoleDriver, u.Role)
	require.NotNil(t, u.Vehicle)
	assert.Equal(t, "AB 123", u.Vehicle.Plate)
	assert.NotNil(t, e.pub.last(events.UserRegistered))

	_, err = e.svc.Register(e.ctx, usersvc.RegisterInput{FullName: "x", Email: "dana@example.com", Password: "another-pass", Role: "passenger"})
	assert.ErrorIs(t, err, usersvc.ErrEmailTaken)
	_, err = e.svc.Register(e.ctx, usersvc.RegisterInput{FullName: "x", Email: "x@example.com", Password: "another-pass", Role: "admin"})
	assert.ErrorIs(t, err, usersvc.ErrBadRole)

	got, _, err := e.svc.Authenticate(e.ctx, "DANA@example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, why, err := e.svc.Authenticate(e.ctx, "dana@example.com", "wrong-pass")
	assert.ErrorIs(t, err, usersvc.ErrInvalidCredentials)
	assert.Equal(t, audit.EventLoginFailedWrongPassword, why)

	_, why, err = e.svc.Authenticate(e.ctx, "nobody@example.com", "whatever1")
	assert.ErrorIs(t, err, usersvc.ErrInvalidCredentials)
	assert.Equal(t, audit.EventLoginFailedUserNotFound, why)

	_, err = e.users.SetStatus(e.ctx, u.ID, models.UserStatusDisabled)
	require.NoError(t, err)
	_, why, err = e.svc.Authenticate(e.ctx, "dana@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, usersvc.ErrDisabled)
	assert.Equal(t, audit.EventLoginFailedUserDisabled, why)
}

func TestPasswordReset_TokenSingleUse(t *testing.T) {
	e := setup(t)
	_, err := e.svc.Register(e.ctx, usersvc.RegisterInput{FullName: "Pat", Email: "pat@example.com", Password: "first-pass", Role: "passenger"})
	require.NoError(t, err)

	require.NoError(t, e.svc.ForgotPassword(e.ctx, "unknown@example.com"))
	assert.Nil(t, e.pub.last(events.UserPasswordResetRequest))

	require.NoError(t, e.svc.ForgotPassword(e.ctx, "pat@example.com"))
	ev, ok := e.pub.last(events.UserPasswordResetRequest).(events.UserEvent)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(ev.ResetURL, "https://ride.test/reset-password?token="))
	link, err := url.Parse(ev.ResetURL)
	require.NoError(t, err)
	token := link.Query().Get("token")

	_, err = e.svc.ResetPassword(e.ctx, token, "short")
	assert.ErrorIs(t, err, usersvc.ErrWeakPassword)

	_, err = e.svc.ResetPassword(e.ctx, token, "second-pass")
	require.NoError(t, err)

	_, err = e.svc.ResetPassword(e.ctx, token, "third-pass")
	assert.ErrorIs(t, err, usersvc.ErrBadResetToken)

	_, _, err = e.svc.Authenticate(e.ctx, "pat@example.com", "second-pass")
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	e := setup(t)
	u, err := e.svc.Register(e.ctx, usersvc.RegisterInput{FullName: "Pat", Email: "pat@example.com", Password: "first-pass", Role: "passenger"})
	require.NoError(t, err)

	assert.ErrorIs(t, e.svc.ChangePassword(e.ctx, u.ID, "nope-nope", "next-pass"), usersvc.ErrWrongPassword)
	require.NoError(t, e.svc.ChangePassword(e.ctx, u.ID, "first-pass", "next-pass"))
	assert.NotNil(t, e.pub.last(events.UserPasswordChanged))
}

func TestAdminManagement(t *testing.T) {
	e := setup(t)
	root := e.fx.CreateAdmin(e.ctx, "Root")
	role, err := e.roles.Create(e.ctx, models.Role{Name: "Support", Permissions: []string{models.PermUsersRead}})
	require.NoError(t, err)

	admin, err := e.svc.CreateAdmin(e.ctx, usersvc.CreateAdminInput{FullName: "Ada", Email: "ada@example.com", RoleID: role.ID.Hex()}, root.ID)
	require.NoError(t, err)
	assert.True(t, admin.MustChangePassword)
	created, ok := e.pub.last(events.AdminCreated).(events.AdminCreatedEvent)
	require.True(t, ok)
	assert.Len(t, created.TempPassword, 12)

	_, _, err = e.svc.Authenticate(e.ctx, "ada@example.com", created.TempPassword)
	require.NoError(t, err)

	_, err = e.svc.AssignRole(e.ctx, admin.ID, nil)
	require.NoError(t, err)
	missing := primitive.NewObjectID()
	_, err = e.svc.AssignRole(e.ctx, admin.ID, &missing)
	assert.ErrorIs(t, err, usersvc.ErrRoleNotFound)

	rider := e.fx.CreatePassenger(e.ctx, "Pat")
	_, err = e.svc.AssignRole(e.ctx, rider.ID, &role.ID)
	assert.ErrorIs(t, err, usersvc.ErrNotAdmin)

	_, err = e.svc.SetStatus(e.ctx, root.ID, "disabled", root.ID)
	assert.ErrorIs(t, err, usersvc.ErrSelfStatus)
	_, err = e.svc.SetStatus(e.ctx, root.ID, "disabled", admin.ID)
	assert.ErrorIs(t, err, usersvc.ErrSuperAdminLocked)
	out, err := e.svc.SetStatus(e.ctx, rider.ID, "Disabled", root.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusDisabled, out.Status)

	page, err := e.svc.ListUsers(e.ctx, userstore.ListFilter{Role: "admin"}, paging.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
}

func TestAdminLockout(t *testing.T) {
	e := setup(t)
	admin := e.fx.CreateAdmin(e.ctx, "Ada")

	for i := 0; i < usersvc.AdminLockoutThreshold; i++ {
		locked, err := e.svc.AdminLocked(e.ctx, admin.ID)
		require.NoError(t, err)
		require.False(t, locked)
		require.NoError(t, e.audits.Log(e.ctx, audit.Event{
			Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword, UserID: &admin.ID,
		}))
		e.svc.AdminLoginFailed(e.ctx, &admin, "203.0.113.9")
	}
	locked, err := e.svc.AdminLocked(e.ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, locked)

	ev, ok := e.pub.last(events.AdminLoginFailedLocked).(events.AdminLoginLockedEvent)
	require.True(t, ok)
	assert.Equal(t, usersvc.AdminLockoutThreshold, ev.Attempts)
	assert.Equal(t, "203.0.113.9", ev.IP)
}

func TestEnsureSuperAdmin(t *testing.T) {
	e := setup(t)
	require.NoError(t, e.svc.EnsureSuperAdmin(e.ctx, "root@example.com", "root-password"))
	require.NoError(t, e.svc.EnsureSuperAdmin(e.ctx, "root@example.com", "root-password"))

	u, err := e.users.GetByEmail(e.ctx, "root@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsSuperAdmin)
	assert.Equal(t, models.RoleAdmin, u.Role)

	pat := e.fx.CreateUser(e.ctx, "Pat", "pat@example.com", models.RolePassenger)
	require.NoError(t, e.svc.EnsureSuperAdmin(e.ctx, "pat@example.com", ""))
	promoted, err := e.users.FindByID(e.ctx, pat.ID)
	require.NoError(t, err)
	assert.True(t, promoted.IsSuperAdmin)

	assert.NoError(t, e.svc.EnsureSuperAdmin(e.ctx, "", ""))
}
