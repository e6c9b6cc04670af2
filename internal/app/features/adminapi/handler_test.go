package adminapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/ridehub/internal/app/features/account"
	"github.com/dalemusser/ridehub/internal/app/features/adminapi"
	documentsvc "github.com/dalemusser/ridehub/internal/app/services/documents"
	"github.com/dalemusser/ridehub/internal/app/services/registry"
	rolesvc "github.com/dalemusser/ridehub/internal/app/services/roles"
	withdrawalsvc "github.com/dalemusser/ridehub/internal/app/services/withdrawals"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	"github.com/dalemusser/ridehub/internal/app/system/auditlog"
	"github.com/dalemusser/ridehub/internal/app/system/csvutil"
	"github.com/dalemusser/ridehub/internal/app/system/indexes"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/ridehub/internal/testutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	router http.Handler
	set    *registry.Set
	fx     *testutil.Fixtures
	ctx    context.Context
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	require.NoError(t, indexes.EnsureAll(ctx, db))

	blobs, err := storage.NewLocal(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "http://files.test"})
	require.NoError(t, err)
	set := registry.New(db, registry.Options{ResetSecret: "0123456789abcdef0123456789abcdef", Blobs: blobs, Logger: zap.NewNop()})
	require.NoError(t, set.Settings.Init(ctx))

	auditLog := auditlog.New(set.Stores.Audit, zap.NewNop(), auditlog.Config{Auth: "db", Admin: "db"})
	acct := account.NewHandler(set.Users, set.Wallet, set.Notifications, auditLog, zap.NewNop())
	h := adminapi.NewHandler(acct, adminapi.Services{
		Users:         set.Users,
		Roles:         set.Roles,
		Settings:      set.Settings,
		Documents:     set.Documents,
		Withdrawals:   set.Withdrawals,
		Wallet:        set.Wallet,
		Rides:         set.Rides,
		Ratings:       set.Ratings,
		Subscriptions: set.Subscriptions,
		Evps:          set.Evps,
		Dashboard:     set.Dashboard,
	}, set.Stores.Roles, set.Stores.Audit, auditLog, zap.NewNop())
	return env{router: adminapi.Routes(h), set: set, fx: testutil.NewFixtures(t, db), ctx: ctx}
}

func (e env) do(u models.User, method, path string, body any) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, testutil.AsUser(testutil.NewJSONRequest(method, path, body), u))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// limitedAdmin creates an admin whose role grants only perms.
func (e env) limitedAdmin(t *testing.T, perms ...string) models.User {
	t.Helper()
	role, err := e.set.Roles.Create(e.ctx, rolesvc.Input{Name: "Ops " + strings.Join(perms, "+"), Permissions: perms})
	require.NoError(t, err)
	u := e.fx.CreateUser(e.ctx, "Olive Ops", "olive@admin.test", models.RoleAdmin)
	got, err := e.set.Stores.Users.SetRole(e.ctx, u.ID, &role.ID)
	require.NoError(t, err)
	return *got
}

func (e env) auditEvents(t *testing.T, eventType string) []audit.Event {
	t.Helper()
	rows, _, err := e.set.Stores.Audit.Query(e.ctx, audit.QueryFilter{EventType: eventType}, paging.Params{Page: 1, Limit: 50})
	require.NoError(t, err)
	return rows
}

func TestRoutes_RequireAdminRole(t *testing.T) {
	e := setup(t)
	dee := e.fx.CreateDriver(e.ctx, "Dee")
	assert.Equal(t, http.StatusForbidden, e.do(dee, http.MethodGet, "/dashboard", nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(dee, http.MethodGet, "/users", nil).Code)
}

func TestRoutes_PermissionGate(t *testing.T) {
	e := setup(t)
	olive := e.limitedAdmin(t, models.PermUsersRead)

	assert.Equal(t, http.StatusOK, e.do(olive, http.MethodGet, "/users", nil).Code)
	assert.Equal(t, http.StatusOK, e.do(olive, http.MethodGet, "/settings", nil).Code, "reading settings needs no permission")

	rec := e.do(olive, http.MethodPut, "/settings", map[string]float64{"base_fare": 4})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Missing permission: settings.write", decode[errBody](t, rec).Message)

	assert.Equal(t, http.StatusForbidden, e.do(olive, http.MethodGet, "/audit", nil).Code)
}

func TestUsers_StatusAndAdmins(t *testing.T) {
	e := setup(t)
	root := e.fx.CreateAdmin(e.ctx, "Root")
	pat := e.fx.CreatePassenger(e.ctx, "Pat")

	rec := e.do(root, http.MethodGet, "/users?role=passenger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[paging.Page[models.User]](t, rec)
	require.Len(t, page.Items, 1)
	assert.Equal(t, pat.ID, page.Items[0].ID)

	rec = e.do(root, http.MethodPut, "/users/"+pat.ID.Hex()+"/status", map[string]string{"status": "disabled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.UserStatusDisabled, decode[models.User](t, rec).Status)
	events := e.auditEvents(t, audit.EventUserDisabled)
	require.Len(t, events, 1)
	assert.Equal(t, pat.ID, *events[0].UserID)
	assert.Equal(t, root.ID, *events[0].ActorID)

	rec = e.do(root, http.MethodPut, "/users/"+root.ID.Hex()+"/status", map[string]string{"status": "disabled"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "admins cannot disable themselves")

	rec = e.do(root, http.MethodPost, "/admins", map[string]string{"full_name": "Ada Admin", "email": "ada@admin.test"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ada := decode[models.User](t, rec)
	assert.Equal(t, models.RoleAdmin, ada.Role)
	assert.True(t, ada.MustChangePassword)
	assert.Len(t, e.auditEvents(t, audit.EventAdminCreated), 1)

	role, err := e.set.Roles.Create(e.ctx, rolesvc.Input{Name: "Support", Permissions: []string{models.PermRidesRead}})
	require.NoError(t, err)
	rec = e.do(root, http.MethodPut, "/users/"+ada.ID.Hex()+"/role", map[string]string{"role_id": role.ID.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, decode[models.User](t, rec).RoleID)

	rec = e.do(root, http.MethodPut, "/users/"+pat.ID.Hex()+"/role", map[string]string{"role_id": role.ID.Hex()})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "only admins carry roles")
}

func TestRoles_CRUD(t *testing.T) {
	e := setup(t)
	root := e.fx.CreateAdmin(e.ctx, "Root")

	rec := e.do(root, http.MethodGet, "/roles/permissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AllPermissions, decode[map[string][]string](t, rec)["permissions"])

	rec = e.do(root, http.MethodPost, "/roles", map[string]any{"name": "Finance", "permissions": []string{models.PermWithdrawalsReview}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	role := decode[models.Role](t, rec)

	rec = e.do(root, http.MethodPost, "/roles", map[string]any{"name": "Bogus", "permissions": []string{"rides.delete"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(root, http.MethodPut, "/roles/"+role.ID.Hex(), map[string]any{
		"name":        "Finance",
		"permissions": []string{models.PermWithdrawalsReview, models.PermTransactionsExport},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[models.Role](t, rec).Permissions, 2)

	assert.Equal(t, http.StatusNoContent, e.do(root, http.MethodDelete, "/roles/"+role.ID.Hex(), nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(root, http.MethodGet, "/roles/"+role.ID.Hex(), nil).Code)

	for _, ev := range []string{audit.EventRoleCreated, audit.EventRoleUpdated, audit.EventRoleDeleted} {
		assert.Len(t, e.auditEvents(t, ev), 1, ev)
	}
}

func TestSettings_UpdateIsAudited(t *testing.T) {
	e := setup(t)
	root := e.fx.CreateAdmin(e.ctx, "Root")

	rec := e.do(root, http.MethodPut, "/settings", map[string]float64{"base_fare": 4, "minimum_fare": 6})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ps := decode[models.PlatformSettings](t, rec)
	assert.Equal(t, 4.0, ps.BaseFare)
	assert.Equal(t, "Root", ps.UpdatedByName)

	events := e.auditEvents(t, audit.EventSettingsUpdated)
	require.Len(t, events, 1)
	assert.Equal(t, "base_fare,minimum_fare", events[0].Details["fields"])

	rec = e.do(root, http.MethodPut, "/settings", map[string]float64{"commission_percent": 140})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWithdrawals_ApproveAndReject(t *testing.T) {
	e := setup(t)
	root := e.fx.CreateAdmin(e.ctx, "Root")
	dee := e.fx.CreateDriver(e.ctx, "Dee")

	_, err := e.set.Wallet.Deposit(e.ctx, dee.ID, 100, "top up")
	require.NoError(t, err)
	_, err = e.set.Withdrawals.AddAccount(e.ctx, dee.ID, withdrawalsvc.AccountInput{
		BankName: "First Bank", AccountHolder: "Dee", AccountNumber: "12345678",
	})
	require.NoError(t, err)
	req, err := e.set.Withdrawals.Request(e.ctx, dee.ID, 60, nil)
	require.NoError(t, err)

	rec := e.do(root, http.MethodGet, "/withdrawals?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[paging.Page[models.WithdrawalRequest]](t, rec).Total)

	rec = e.do(root, http.MethodPost, "/withdrawals/"+req.ID.Hex()+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.WithdrawalApproved, decode[models.WithdrawalRequest](t, rec).Status)

	bal, err := e.set.Wallet.Balance(e.ctx, dee.ID)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, bal, 0.001)

	rec = e.do(root, http.MethodPost, "/withdrawals/"+req.ID.Hex()+"/approve", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "already processed")

	second, err := e.set.Withdrawals.Request(e.ctx, dee.ID, 20, nil)
	require.NoError(t, err)
	rec = e.do(root, http.MethodPost, "/withdrawals/"+second.ID.Hex()+"/reject", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "reason required")
	rec = e.do(root, http.MethodPost, "/withdrawals/"+second.ID.Hex()+"/reject", map[string]string{"reason": "Account closed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Account closed", decode[models.WithdrawalRequest](t, rec).RejectionReason)

	assert.Len(t, e.auditEvents(t, audit.EventWithdrawalApproved), 1)
	assert.Len(t, e.auditEvents(t, audit.EventWithdrawalRejected), 1)
}

func TestDocuments_Review(t *testing.T) {
	e := setup(t)
	root := e.fx.CreateAdmin(e.ctx, "Root")
	dee := e.fx.CreateDriver(e.ctx, "Dee")

	pdf := []byte("%PDF-1.4 licence")
	doc, err := e.set.Documents.Upload(e.ctx, documentsvc.KindDriver, dee.ID, models.DocDrivingLicense, documentsvc.File{
		Name: "licence.pdf", ContentType: "application/pdf", Size: int64(len(pdf)), Body: bytes.NewReader(pdf),
	}, nil)
	require.NoError(t, err)

	rec := e.do(root, http.MethodGet, "/documents/driver/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode[paging.Page[models.DocumentRecord]](t, rec).Total)
	assert.Equal(t, http.StatusBadRequest, e.do(root, http.MethodGet, "/documents/boat/pending", nil).Code)

	path := "/documents/driver/" + doc.ID.Hex() + "/review"
	rec = e.do(root, http.MethodPut, path, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "rejection needs a reason")

	rec = e.do(root, http.MethodPut, path, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.DocApproved, decode[models.DocumentRecord](t, rec).Status)
	assert.Equal(t, http.StatusBadRequest, e.do(root, http.MethodPut, path, map[string]string{"status": "approved"}).Code)

	events := e.auditEvents(t, audit.EventDocumentApproved)
	require.Len(t, events, 1)
	assert.Equal(t, dee.ID, *events[0].UserID)
	assert.Equal(t, models.DocDrivingLicense, events[0].Details["document_type"])
}

func TestTransactions_ListAndExport(t *testing.T) {
	e := setup(t)
	root := e.fx.CreateAdmin(e.ctx, "Root")
	pat := e.fx.CreatePassenger(e.ctx, "Pat")
	_, err := e.set.Wallet.Deposit(e.ctx, pat.ID, 25, "top up")
	require.NoError(t, err)

	rec := e.do(root, http.MethodGet, "/transactions?user_id="+pat.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode[paging.Page[models.WalletTransaction]](t, rec).Total)

	assert.Equal(t, http.StatusBadRequest, e.do(root, http.MethodGet, "/transactions?from=yesterday", nil).Code)

	rec = e.do(root, http.MethodGet, "/transactions/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], strings.Join(csvutil.TransactionHeader, ","))

	events := e.auditEvents(t, audit.EventTransactionsExport)
	require.Len(t, events, 1)
	assert.Equal(t, "1", events[0].Details["rows"])
}

func TestPlansAndEvps(t *testing.T) {
	e := setup(t)
	root := e.fx.CreateAdmin(e.ctx, "Root")
	dee := e.fx.CreateDriver(e.ctx, "Dee")

	rec := e.do(root, http.MethodPost, "/plans", map[string]any{
		"code": "weekly", "name": "Weekly", "price": 15, "duration_days": 7, "daily_ride_requests": 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	plan := decode[models.SubscriptionPlan](t, rec)

	rec = e.do(root, http.MethodPut, "/plans/"+plan.ID.Hex(), map[string]any{
		"name": "Weekly Plus", "price": 18, "duration_days": 7, "daily_ride_requests": 40,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Weekly Plus", decode[models.SubscriptionPlan](t, rec).Name)
	assert.Equal(t, http.StatusNoContent, e.do(root, http.MethodDelete, "/plans/"+plan.ID.Hex(), nil).Code)

	rec = e.do(root, http.MethodPost, "/evps", map[string]any{"driver_id": dee.ID.Hex(), "validity_days": 10})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	evp := decode[models.Evp](t, rec)
	assert.Equal(t, 10*24.0, evp.EndDate.Sub(evp.StartDate).Hours())

	rec = e.do(root, http.MethodPost, "/evps", map[string]any{"driver_id": dee.ID.Hex()})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "one active permit per driver")

	rec = e.do(root, http.MethodGet, "/evps?driver_id="+dee.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[paging.Page[models.Evp]](t, rec).Total)

	rec = e.do(root, http.MethodPost, "/evps/"+evp.ID.Hex()+"/revoke", map[string]string{"reason": "Fraud"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, e.do(root, http.MethodPost, "/evps/"+evp.ID.Hex()+"/revoke", nil).Code)

	for _, ev := range []string{audit.EventPlanCreated, audit.EventPlanUpdated, audit.EventPlanDeleted, audit.EventEvpIssued, audit.EventEvpRevoked} {
		assert.Len(t, e.auditEvents(t, ev), 1, ev)
	}
}

func TestRidesAndAudit(t *testing.T) {
	e := setup(t)
	root := e.fx.CreateAdmin(e.ctx, "Root")
	pat := e.fx.CreatePassenger(e.ctx, "Pat")
	dee := e.fx.CreateDriver(e.ctx, "Dee")
	ride := e.fx.CreateRide(e.ctx, pat.ID, &dee.ID, models.RideCompleted)
	cancelled := e.fx.CreateRide(e.ctx, pat.ID, nil, models.RideCancelled)

	rec := e.do(root, http.MethodGet, "/rides?driver_id="+dee.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode[paging.Page[models.Ride]](t, rec).Total)

	rec = e.do(root, http.MethodGet, "/rides/"+ride.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ride.ID, decode[models.Ride](t, rec).ID)

	rec = e.do(root, http.MethodPost, "/rides/"+ride.ID.Hex()+"/settle", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[models.Ride](t, rec).SettlementError)
	assert.Len(t, e.auditEvents(t, audit.EventRideSettled), 1)
	assert.Equal(t, http.StatusBadRequest, e.do(root, http.MethodPost, "/rides/"+cancelled.ID.Hex()+"/settle", nil).Code)

	assert.Equal(t, http.StatusBadRequest, e.do(root, http.MethodGet, "/ratings?max_stars=9", nil).Code)

	rec = e.do(root, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	e.do(root, http.MethodPut, "/users/"+pat.ID.Hex()+"/status", map[string]string{"status": "disabled"})
	rec = e.do(root, http.MethodGet, "/audit?event_type="+audit.EventUserDisabled+"&user_id="+pat.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode[paging.Page[audit.Event]](t, rec).Total)
}
