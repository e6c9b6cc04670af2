// internal/app/features/authapi/handler.go
package authapi

import (
	"net/http"
	"time"

	usersvc "github.com/dalemusser/ridehub/internal/app/services/users"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/auditlog"
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/ratelimit"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves sign-up, sign-in and password recovery for the app and
// the admin console.
type Handler struct {
	Users    *usersvc.Service
	Tokens   *auth.TokenService
	Sessions *auth.SessionManager // admin console cookie; nil disables it
	Limiter  *ratelimit.LoginLimiter
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(users *usersvc.Service, tokens *auth.TokenService, sessions *auth.SessionManager, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Tokens:   tokens,
		Sessions: sessions,
		Limiter:  limiter,
		Audit:    audit,
		Log:      logger,
	}
}

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// tokenResponse is returned by every endpoint that signs a user in.
type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

func (h *Handler) issue(u *models.User) (tokenResponse, error) {
	tok, exp, err := h.Tokens.Issue(*u)
	if err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{AccessToken: tok, TokenType: "Bearer", ExpiresAt: exp, User: u}, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/register                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in usersvc.RegisterInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "register")
	defer cancel()

	u, err := h.Users.Register(ctx, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Auth(ctx, r, audit.EventRegistered, u.ID)

	resp, err := h.issue(&u)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.Created(w, resp)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/login                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// Login signs in a passenger or driver and returns a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	if err := h.Limiter.Check(r, in.Email); err != nil {
		h.Audit.LoginFailed(ctx, r, audit.EventLoginFailedRateLimit, nil, in.Email, "rate limited")
		apierr.Write(w, r, h.Log, err)
		return
	}

	u, why, err := h.Users.Authenticate(ctx, in.Email, in.Password)
	if err == nil && u.Role == models.RoleAdmin {
		// Admins sign in through the console, where lockout applies.
		why, err = audit.EventLoginFailedWrongPassword, usersvc.ErrInvalidCredentials
	}
	if err != nil {
		if why != "" {
			h.Audit.LoginFailed(ctx, r, why, userIDOf(u), in.Email, err.Error())
		}
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.Limiter.ResetEmail(in.Email)
	h.Audit.LoginSuccess(ctx, r, u.ID, "app")
	resp, err := h.issue(u)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, resp)
}

func userIDOf(u *models.User) *primitive.ObjectID {
	if u == nil {
		return nil
	}
	return &u.ID
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/forgot-password                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// ForgotPassword always answers the same way so the endpoint cannot be
// used to discover which accounts exist.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if err := h.Limiter.Check(r, in.Email); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "forgot password")
	defer cancel()

	if err := h.Users.ForgotPassword(ctx, in.Email); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, jsonio.Message{Message: "If an account exists for that email, a reset link has been sent."})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/reset-password                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required,min=8,max=128"`
	}
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "reset password")
	defer cancel()

	u, err := h.Users.ResetPassword(ctx, in.Token, in.Password)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Auth(ctx, r, audit.EventPasswordReset, u.ID)
	jsonio.OK(w, jsonio.Message{Message: "Password has been reset"})
}
