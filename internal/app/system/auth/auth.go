package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// Principal is the authenticated caller injected into r.Context().
type Principal struct {
	ID           string
	Name         string
	Email        string
	Role         string
	RoleID       string // admin permission role, hex
	IsSuperAdmin bool
}

// ObjectID returns the principal's user id.
func (p *Principal) ObjectID() primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(p.ID)
	return id
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*Principal, bool) {
	u, ok := r.Context().Value(currentUserKey).(*Principal)
	return u, ok
}

// WithTestUser returns r carrying p. Handler tests use it in place of a token.
func WithTestUser(r *http.Request, p Principal) *http.Request {
	return withUser(r, &p)
}

func withUser(r *http.Request, p *Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, p))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Loading the principal                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// UserFetcher loads the current state of a user so role changes and
// disabled accounts take effect on the next request, not at token expiry.
type UserFetcher interface {
	FetchUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Authenticator resolves the caller from a Bearer token, or for the admin
// console, from the session cookie.
type Authenticator struct {
	Tokens   *TokenService
	Sessions *SessionManager // optional
	Users    UserFetcher     // optional
	Log      *zap.Logger
}

// Load injects the principal into the context when credentials are valid.
// Invalid or missing credentials leave the request anonymous; the Require*
// middlewares decide what that means.
func (a *Authenticator) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := a.fromBearer(r)
		if p == nil && a.Sessions != nil {
			p = a.Sessions.Principal(r)
		}
		if p != nil && a.Users != nil {
			p = a.refresh(r.Context(), p)
		}
		if p != nil {
			r = withUser(r, p)
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) fromBearer(r *http.Request) *Principal {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return nil
	}
	p, err := a.Tokens.Parse(strings.TrimSpace(h[7:]))
	if err != nil {
		if a.Log != nil {
			a.Log.Debug("bearer token rejected", zap.Error(err))
		}
		return nil
	}
	return p
}

// refresh overlays the stored role and status. A disabled or missing user
// is treated as anonymous.
func (a *Authenticator) refresh(ctx context.Context, p *Principal) *Principal {
	u, err := a.Users.FetchUser(ctx, p.ObjectID())
	if err != nil || u == nil || !u.IsActive() {
		return nil
	}
	p.Name = u.FullName
	p.Email = u.Email
	p.Role = u.Role
	p.IsSuperAdmin = u.IsSuperAdmin
	p.RoleID = ""
	if u.RoleID != nil {
		p.RoleID = u.RoleID.Hex()
	}
	return p
}

/*─────────────────────────────────────────────────────────────────────────────*
| Guards                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireSignedIn rejects anonymous requests with 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			apierr.Write(w, r, nil, apierr.Unauthorized("Unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects anonymous requests with 401 and callers whose role is
// not in allowed with 403.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				apierr.Write(w, r, nil, apierr.Unauthorized("Unauthorized"))
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				apierr.Write(w, r, nil, apierr.Forbidden("Forbidden resource"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
