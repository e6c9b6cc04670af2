// Package reqctx pulls the caller, path ids and common query filters out of
// API requests.
package reqctx

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User returns the signed-in caller as a models.User carrying id, name,
// email and role. It is not a database read.
func User(r *http.Request) (models.User, error) {
	p, ok := auth.CurrentUser(r)
	if !ok {
		return models.User{}, apierr.Unauthorized("Unauthorized")
	}
	id := p.ObjectID()
	if id.IsZero() {
		return models.User{}, apierr.Unauthorized("Unauthorized")
	}
	u := models.User{
		ID:           id,
		FullName:     p.Name,
		Email:        p.Email,
		Role:         p.Role,
		IsSuperAdmin: p.IsSuperAdmin,
	}
	if rid, err := primitive.ObjectIDFromHex(p.RoleID); err == nil {
		u.RoleID = &rid
	}
	return u, nil
}

// UserID returns the caller's id.
func UserID(r *http.Request) (primitive.ObjectID, error) {
	u, err := User(r)
	return u.ID, err
}

// PathID parses the chi URL parameter name as an ObjectID.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := docstore.ParseID(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, apierr.BadRequest("Invalid " + name)
	}
	return id, nil
}

// QueryID parses an optional ?key= ObjectID. Empty means nil.
func QueryID(r *http.Request, key string) (*primitive.ObjectID, error) {
	v := strings.TrimSpace(query.Get(r, key))
	if v == "" {
		return nil, nil
	}
	id, err := docstore.ParseID(v)
	if err != nil {
		return nil, apierr.BadRequest("Invalid " + key)
	}
	return &id, nil
}

// QueryTime parses an optional ?key= as RFC 3339 or a YYYY-MM-DD date (UTC
// midnight).
func QueryTime(r *http.Request, key string) (*time.Time, error) {
	v := strings.TrimSpace(query.Get(r, key))
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apierr.BadRequest(key + " must be a date (YYYY-MM-DD) or RFC 3339 time")
}

// Query returns the trimmed ?key= value.
func Query(r *http.Request, key string) string {
	return strings.TrimSpace(query.Get(r, key))
}
