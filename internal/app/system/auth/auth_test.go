package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const secret = "test-secret-0123456789abcdefghijklmnop"

func rider() models.User {
	return models.User{
		ID:       primitive.NewObjectID(),
		FullName: "Ada Rider",
		Email:    "ada@rider.test",
		Role:     models.RolePassenger,
		Status:   models.UserStatusActive,
	}
}

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := auth.NewTokenService("short", time.Hour, "ridehub"); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestToken_RoundTrip(t *testing.T) {
	ts, err := auth.NewTokenService(secret, time.Hour, "ridehub")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	u := rider()
	tok, exp, err := ts.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Errorf("expiry too soon: %v", exp)
	}

	p, err := ts.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.ID != u.ID.Hex() || p.Role != models.RolePassenger || p.Email != u.Email {
		t.Errorf("principal mismatch: %+v", p)
	}
}

func TestToken_Tampered(t *testing.T) {
	ts, _ := auth.NewTokenService(secret, time.Hour, "ridehub")
	other, _ := auth.NewTokenService(strings.Repeat("x", 40), time.Hour, "ridehub")

	tok, _, _ := other.Issue(rider())
	if _, err := ts.Parse(tok); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
	if _, err := ts.Parse("not.a.token"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("garbage: got %v, want ErrInvalidToken", err)
	}
}

func TestToken_LeewayToleratesSkew(t *testing.T) {
	ts, _ := auth.NewTokenService(secret, time.Nanosecond, "ridehub")
	tok, _, err := ts.Issue(rider())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	// Leeway is one minute; a nanosecond TTL is still inside it.
	if _, err := ts.Parse(tok); err != nil {
		t.Errorf("within leeway: got %v", err)
	}
}

func TestPassword(t *testing.T) {
	if _, err := auth.HashPassword("short"); !errors.Is(err, auth.ErrWeakPassword) {
		t.Errorf("got %v, want ErrWeakPassword", err)
	}
	h, err := auth.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !auth.CheckPassword(h, "correct horse") {
		t.Error("expected password to match")
	}
	if auth.CheckPassword(h, "wrong horse") {
		t.Error("expected mismatch")
	}
	if auth.CheckPassword("", "anything") {
		t.Error("empty hash must never match")
	}
}

func TestResetTokens(t *testing.T) {
	rt := auth.NewResetTokens(secret, time.Hour)
	id := primitive.NewObjectID()

	tok, err := rt.Issue(id, "hash-v1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	gotID, fp, err := rt.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if gotID != id {
		t.Errorf("id: got %v, want %v", gotID, id)
	}
	if !auth.Matches(fp, "hash-v1") {
		t.Error("fingerprint should match the issuing hash")
	}
	if auth.Matches(fp, "hash-v2") {
		t.Error("fingerprint must not match after password change")
	}
	if _, _, err := rt.Verify(tok + "x"); !errors.Is(err, auth.ErrBadResetToken) {
		t.Errorf("tampered: got %v, want ErrBadResetToken", err)
	}
}

type fakeUsers map[primitive.ObjectID]*models.User

func (f fakeUsers) FetchUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func serve(a *auth.Authenticator, guard func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	h := a.Load(guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticator_Bearer(t *testing.T) {
	ts, _ := auth.NewTokenService(secret, time.Hour, "ridehub")
	u := rider()
	a := &auth.Authenticator{Tokens: ts, Users: fakeUsers{u.ID: &u}, Log: zap.NewNop()}
	tok, _, _ := ts.Issue(u)

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if rec := serve(a, auth.RequireRole(models.RolePassenger), req); rec.Code != http.StatusNoContent {
		t.Errorf("passenger route: got %d, want 204", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/driver/profile", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if rec := serve(a, auth.RequireRole(models.RoleDriver), req); rec.Code != http.StatusForbidden {
		t.Errorf("driver route: got %d, want 403", rec.Code)
	}
}

func TestAuthenticator_DisabledUserIsAnonymous(t *testing.T) {
	ts, _ := auth.NewTokenService(secret, time.Hour, "ridehub")
	u := rider()
	tok, _, _ := ts.Issue(u)
	u.Status = models.UserStatusDisabled
	a := &auth.Authenticator{Tokens: ts, Users: fakeUsers{u.ID: &u}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if rec := serve(a, auth.RequireSignedIn, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rec.Code)
	}
}

func TestRequireSignedIn_NoCredentials(t *testing.T) {
	ts, _ := auth.NewTokenService(secret, time.Hour, "ridehub")
	a := &auth.Authenticator{Tokens: ts}
	rec := serve(a, auth.RequireSignedIn, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}
}

func TestSessionManager_RoundTrip(t *testing.T) {
	m, err := auth.NewSessionManager(secret, "ridehub-admin", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	u := models.User{ID: primitive.NewObjectID(), FullName: "Root", Email: "root@x.test", Role: models.RoleAdmin}

	rec := httptest.NewRecorder()
	if err := m.SignIn(rec, httptest.NewRequest(http.MethodPost, "/", nil), u); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	p := m.Principal(req)
	if p == nil {
		t.Fatal("expected principal from cookie")
	}
	if p.ID != u.ID.Hex() || p.Role != models.RoleAdmin {
		t.Errorf("principal mismatch: %+v", p)
	}
}
