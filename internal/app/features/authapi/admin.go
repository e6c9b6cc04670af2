package authapi

import (
	"net/http"

	usersvc "github.com/dalemusser/ridehub/internal/app/services/users"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/ratelimit"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/auth/login                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// AdminLogin signs in an admin. Besides the bearer token it sets the
// console session cookie. Repeated failures lock the account for the
// lockout window, whatever password is presented.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin login")
	defer cancel()

	if err := h.Limiter.Check(r, in.Email); err != nil {
		h.Audit.LoginFailed(ctx, r, audit.EventLoginFailedRateLimit, nil, in.Email, "rate limited")
		apierr.Write(w, r, h.Log, err)
		return
	}

	u, why, err := h.Users.Authenticate(ctx, in.Email, in.Password)
	if u != nil && u.Role != models.RoleAdmin {
		// Do not reveal that the account exists on the other surface.
		u, why, err = nil, audit.EventLoginFailedUserNotFound, usersvc.ErrInvalidCredentials
	}
	if u != nil {
		locked, lerr := h.Users.AdminLocked(ctx, u.ID)
		if lerr != nil {
			apierr.Write(w, r, h.Log, lerr)
			return
		}
		if locked {
			h.Audit.LoginFailed(ctx, r, audit.EventLoginFailedRateLimit, &u.ID, in.Email, "account locked")
			apierr.Write(w, r, h.Log, usersvc.ErrLocked)
			return
		}
	}
	if err != nil {
		if why != "" {
			h.Audit.LoginFailed(ctx, r, why, userIDOf(u), in.Email, err.Error())
		}
		if u != nil && why == audit.EventLoginFailedWrongPassword {
			h.Users.AdminLoginFailed(ctx, u, ratelimit.ClientIP(r))
		}
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.Limiter.ResetEmail(in.Email)
	if h.Sessions != nil {
		if err := h.Sessions.SignIn(w, r, *u); err != nil {
			h.Log.Warn("admin session cookie not set", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
	}
	h.Audit.LoginSuccess(ctx, r, u.ID, "admin")
	resp, err := h.issue(u)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, resp)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/auth/logout                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// AdminLogout clears the console cookie. Bearer tokens expire on their own.
func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.CurrentUser(r); ok {
		h.Audit.Logout(r.Context(), r, p.ID)
	}
	if h.Sessions != nil {
		if err := h.Sessions.SignOut(w, r); err != nil {
			h.Log.Warn("admin session sign-out failed", zap.Error(err))
		}
	}
	jsonio.OK(w, jsonio.Message{Message: "Signed out"})
}
