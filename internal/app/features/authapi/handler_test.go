package authapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/ridehub/internal/app/features/authapi"
	usersvc "github.com/dalemusser/ridehub/internal/app/services/users"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	rolestore "github.com/dalemusser/ridehub/internal/app/store/roles"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	"github.com/dalemusser/ridehub/internal/app/system/auditlog"
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/app/system/indexes"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/ratelimit"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/ridehub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "0123456789abcdef0123456789abcdef"

type env struct {
	router http.Handler
	users  *usersvc.Service
	audits *audit.Store
	tokens *auth.TokenService
	ctx    context.Context
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	require.NoError(t, indexes.EnsureAll(ctx, db))

	audits := audit.New(db)
	users := usersvc.New(userstore.New(db), rolestore.New(db), audits,
		auth.NewResetTokens(secret, time.Hour), nil, "https://ride.test", zap.NewNop())
	tokens, err := auth.NewTokenService(secret, time.Hour, "ridehub-test")
	require.NoError(t, err)
	sessions, err := auth.NewSessionManager(secret, "ridehub-admin", "", false, zap.NewNop())
	require.NoError(t, err)

	h := authapi.NewHandler(users, tokens, sessions, ratelimit.NewLoginLimiter(),
		auditlog.New(audits, zap.NewNop(), auditlog.Config{}), zap.NewNop())
	r := chi.NewRouter()
	r.Mount("/api/auth", authapi.Routes(h))
	r.Mount("/api/admin/auth", authapi.AdminRoutes(h))
	return env{router: r, users: users, audits: audits, tokens: tokens, ctx: ctx}
}

func (e env) do(method, path string, body any) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, testutil.NewJSONRequest(method, path, body))
	return rec
}

type tokenBody struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        models.User `json:"user"`
}

type errBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Path       string `json:"path"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRegisterThenLogin(t *testing.T) {
	e := setup(t)

	rec := e.do(http.MethodPost, "/api/auth/register", map[string]any{
		"full_name": "Pat Passenger", "email": "pat@example.com", "password": "s3cret-pass", "role": "passenger",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[tokenBody](t, rec)
	assert.Equal(t, "Bearer", reg.TokenType)
	assert.Equal(t, models.RolePassenger, reg.User.Role)

	p, err := e.tokens.Parse(reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID.Hex(), p.ID)

	rec = e.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "PAT@example.com", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[tokenBody](t, rec).AccessToken)

	rec = e.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "pat@example.com", "password": "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[errBody](t, rec)
	assert.Equal(t, http.StatusUnauthorized, body.StatusCode)
	assert.Equal(t, "/api/auth/login", body.Path)

	events, total, err := e.audits.Query(e.ctx, audit.QueryFilter{UserID: &reg.User.ID}, paging.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, audit.EventLoginFailedWrongPassword, events[0].EventType)
}

func TestRegister_Validation(t *testing.T) {
	e := setup(t)

	rec := e.do(http.MethodPost, "/api/auth/register", map[string]any{"email": "not-an-email", "password": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errBody](t, rec).Message, "full_name is required")
}

func TestLogin_AdminUsesConsole(t *testing.T) {
	e := setup(t)
	require.NoError(t, e.users.EnsureSuperAdmin(e.ctx, "root@example.com", "super-secret-1"))

	rec := e.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "root@example.com", "password": "super-secret-1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodPost, "/api/admin/auth/login", map[string]string{"email": "root@example.com", "password": "super-secret-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[tokenBody](t, rec).User.IsSuperAdmin)
	assert.NotEmpty(t, rec.Result().Cookies(), "console cookie set")

	rec = e.do(http.MethodPost, "/api/admin/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminLogin_Lockout(t *testing.T) {
	e := setup(t)
	require.NoError(t, e.users.EnsureSuperAdmin(e.ctx, "root@example.com", "super-secret-1"))
	rec := e.do(http.MethodPost, "/api/admin/auth/login", map[string]string{"email": "root@example.com", "password": "super-secret-1"})
	admin := decode[tokenBody](t, rec).User

	for i := 0; i < usersvc.AdminLockoutThreshold; i++ {
		require.NoError(t, e.audits.Log(e.ctx, audit.Event{
			Category:  audit.CategoryAuth,
			EventType: audit.EventLoginFailedWrongPassword,
			UserID:    &admin.ID,
			Success:   false,
		}))
	}

	rec = e.do(http.MethodPost, "/api/admin/auth/login", map[string]string{"email": "root@example.com", "password": "super-secret-1"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, usersvc.ErrLocked.Message, decode[errBody](t, rec).Message)
}

func TestAdminLogin_RejectsPassenger(t *testing.T) {
	e := setup(t)
	rec := e.do(http.MethodPost, "/api/auth/register", map[string]any{
		"full_name": "Pat", "email": "pat@example.com", "password": "s3cret-pass", "role": "passenger",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(http.MethodPost, "/api/admin/auth/login", map[string]string{"email": "pat@example.com", "password": "s3cret-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgotPassword_UnknownEmailSucceeds(t *testing.T) {
	e := setup(t)
	rec := e.do(http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodPost, "/api/auth/reset-password", map[string]string{"token": "bogus", "password": "new-password-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
