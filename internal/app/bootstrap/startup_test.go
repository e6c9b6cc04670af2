package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/ridehub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validAppConfig(t *testing.T) AppConfig {
	return AppConfig{
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "ridehub",
		JWTSecret:        "0123456789abcdef0123456789abcdef",
		JWTTTL:           24 * time.Hour,
		SessionKey:       "fedcba9876543210fedcba9876543210",
		SessionName:      "ridehub-admin",
		StorageType:      "local",
		StorageLocalPath: t.TempDir(),
		StorageLocalURL:  "/files",
		BaseURL:          "http://localhost:8080",
		ResetTokenTTL:    time.Hour,
		AuditLogAuth:     "db",
		AuditLogAdmin:    "db",
		SweepHour:        2,
		JobLockTTL:       10 * time.Minute,
	}
}

func TestValidateConfig(t *testing.T) {
	core := &config.CoreConfig{Env: "dev"}

	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", func(*AppConfig) {}, false},
		{"bad mongo uri", func(c *AppConfig) { c.MongoURI = "postgres://nope" }, true},
		{"short jwt secret", func(c *AppConfig) { c.JWTSecret = "short" }, true},
		{"short session key", func(c *AppConfig) { c.SessionKey = "short" }, true},
		{"zero jwt ttl", func(c *AppConfig) { c.JWTTTL = 0 }, true},
		{"unknown storage", func(c *AppConfig) { c.StorageType = "ftp" }, true},
		{"s3 without bucket", func(c *AppConfig) { c.StorageType = "s3"; c.StorageS3Region = "us-east-1" }, true},
		{"s3 complete", func(c *AppConfig) {
			c.StorageType = "s3"
			c.StorageS3Region = "us-east-1"
			c.StorageS3Bucket = "ridehub-docs"
		}, false},
		{"sweep hour out of range", func(c *AppConfig) { c.SweepHour = 24 }, true},
		{"fcm without credentials", func(c *AppConfig) { c.FCMProjectID = "ridehub" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAppConfig(t)
			tt.mutate(&cfg)
			err := ValidateConfig(core, cfg, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func setupDeps(t *testing.T) (DBDeps, *mongo.Database) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db, Background: &Background{}}
	require.NoError(t, EnsureSchema(ctx, &config.CoreConfig{Env: "dev"}, validAppConfig(t), deps, testLogger()))
	return deps, db
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	deps, _ := setupDeps(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	assert.NoError(t, EnsureSchema(ctx, &config.CoreConfig{Env: "dev"}, validAppConfig(t), deps, testLogger()))
}

func TestStartup_CreatesSuperAdmin(t *testing.T) {
	deps, db := setupDeps(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := validAppConfig(t)
	cfg.SuperAdminEmail = "Root@Example.com"
	cfg.SuperAdminPassword = "correct-horse-battery"
	core := &config.CoreConfig{Env: "dev"}

	require.NoError(t, Startup(ctx, core, cfg, deps, testLogger()))
	// A second start leaves the account alone.
	require.NoError(t, Startup(ctx, core, cfg, deps, testLogger()))

	u, err := userstore.New(db).GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.True(t, u.IsSuperAdmin)
	assert.True(t, u.IsActive())
	assert.False(t, u.MustChangePassword)

	n, err := db.Collection("users").CountDocuments(ctx, map[string]any{"email": "root@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStartup_TemporaryPassword(t *testing.T) {
	deps, db := setupDeps(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := validAppConfig(t)
	cfg.SuperAdminEmail = "ops@example.com"
	require.NoError(t, Startup(ctx, &config.CoreConfig{Env: "dev"}, cfg, deps, testLogger()))

	u, err := userstore.New(db).GetByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.True(t, u.MustChangePassword)
}

func TestStartup_NoEmailIsNoop(t *testing.T) {
	deps, db := setupDeps(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	require.NoError(t, Startup(ctx, &config.CoreConfig{Env: "dev"}, validAppConfig(t), deps, testLogger()))
	n, err := db.Collection("users").CountDocuments(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestJobs(t *testing.T) {
	cfg := validAppConfig(t)
	jobs := Jobs(nil, cfg, testLogger())

	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name)
		assert.NotNil(t, j.Schedule, j.Name)
		assert.NotNil(t, j.Run, j.Name)
	}
	assert.Equal(t, []string{"subscription-expiration", "evp-expiration", "stale-rides", "unsettled-rides"}, names)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "2 hours", humanDuration(2*time.Hour))
	assert.Equal(t, "30 minutes", humanDuration(30*time.Minute))
	assert.Equal(t, "90 minutes", humanDuration(90*time.Minute))
	assert.Equal(t, "1 minute", humanDuration(time.Minute))
}

func TestBuildHandler_Smoke(t *testing.T) {
	deps, _ := setupDeps(t)
	cfg := validAppConfig(t)
	cfg.JobsEnabled = false

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, testLogger())
	require.NoError(t, err)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/health").Code)
	assert.Equal(t, http.StatusOK, get("/metrics").Code)
	assert.Equal(t, http.StatusOK, get("/api/pages/terms").Code)
	assert.Equal(t, http.StatusUnauthorized, get("/api/user/rides").Code)
	assert.Equal(t, http.StatusUnauthorized, get("/api/driver/subscription").Code)
	assert.Equal(t, http.StatusUnauthorized, get("/api/admin/dashboard").Code)
	assert.Equal(t, http.StatusUnauthorized, get("/files/documents/licence.png").Code)

	rec := get("/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 404, body["statusCode"])
	assert.Equal(t, "Cannot GET /nope", body["message"])
	assert.Equal(t, "/nope", body["path"])

	// Shutdown drains the bus; the client is closed by the test DB cleanup.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, Shutdown(ctx, &config.CoreConfig{Env: "dev"}, cfg, DBDeps{Background: deps.Background}, testLogger()))
}
