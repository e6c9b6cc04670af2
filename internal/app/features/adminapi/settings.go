package adminapi

import (
	"net/http"
	"strings"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	settingssvc "github.com/dalemusser/ridehub/internal/app/services/settings"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
)

// Dashboard returns the platform overview counters.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "admin dashboard")
	defer cancel()

	ov, err := h.Services.Dashboard.Overview(ctx)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, ov)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin get settings")
	defer cancel()

	ps, err := h.Settings.Get(ctx)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, ps)
}

// UpdateSettings applies a partial edit. The audit entry lists the fields
// that were sent.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	actor, err := reqctx.User(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in settingssvc.Update
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin update settings")
	defer cancel()

	ps, err := h.Settings.Update(ctx, in, actor)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventSettingsUpdated, actor.ID, nil, map[string]string{"fields": strings.Join(in.Fields(), ",")})
	jsonio.OK(w, ps)
}
