package account

import (
	"net/http"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	usersvc "github.com/dalemusser/ridehub/internal/app/services/users"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /profile                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get profile")
	defer cancel()

	u, err := h.Users.GetProfile(ctx, uid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /profile                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := reqctx.User(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in usersvc.ProfileInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update profile")
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, caller, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /password                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

type passwordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in passwordInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "change password")
	defer cancel()

	if err := h.Users.ChangePassword(ctx, uid, in.CurrentPassword, in.NewPassword); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Auth(ctx, r, audit.EventPasswordChanged, uid)
	jsonio.OK(w, jsonio.Message{Message: "Password updated"})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST|DELETE /device-tokens                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

type deviceTokenInput struct {
	Token string `json:"token" validate:"required,max=4096"`
}

func (h *Handler) AddDeviceToken(w http.ResponseWriter, r *http.Request) {
	h.deviceToken(w, r, true)
}

func (h *Handler) RemoveDeviceToken(w http.ResponseWriter, r *http.Request) {
	h.deviceToken(w, r, false)
}

func (h *Handler) deviceToken(w http.ResponseWriter, r *http.Request, add bool) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in deviceTokenInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "device token")
	defer cancel()

	if add {
		err = h.Users.AddDeviceToken(ctx, uid, in.Token)
	} else {
		err = h.Users.RemoveDeviceToken(ctx, uid, in.Token)
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.NoContent(w)
}
