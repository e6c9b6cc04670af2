package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/domain/models"
)

// PrincipalFor builds the request principal for a stored user.
func PrincipalFor(u models.User) auth.Principal {
	p := auth.Principal{
		ID:           u.ID.Hex(),
		Name:         u.FullName,
		Email:        u.Email,
		Role:         u.Role,
		IsSuperAdmin: u.IsSuperAdmin,
	}
	if u.RoleID != nil {
		p.RoleID = u.RoleID.Hex()
	}
	return p
}

// NewJSONRequest builds a request with body encoded as JSON. A nil body
// sends no body.
func NewJSONRequest(method, target string, body any) *http.Request {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// AsUser returns r carrying u as the authenticated principal.
func AsUser(r *http.Request, u models.User) *http.Request {
	return auth.WithTestUser(r, PrincipalFor(u))
}
