package adminapi

import (
	"net/http"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	rolesvc "github.com/dalemusser/ridehub/internal/app/services/roles"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
)

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin list roles")
	defer cancel()

	roles, err := h.Roles.List(ctx)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, roles)
}

// PermissionCatalogue lists every permission a role may grant.
func (h *Handler) PermissionCatalogue(w http.ResponseWriter, r *http.Request) {
	jsonio.OK(w, map[string][]string{"permissions": h.Roles.Catalogue()})
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := reqctx.PathID(r, "id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin get role")
	defer cancel()

	role, err := h.Roles.Get(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, role)
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	actor, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in rolesvc.Input
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin create role")
	defer cancel()

	role, err := h.Roles.Create(ctx, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventRoleCreated, actor, nil, map[string]string{"role_id": role.ID.Hex(), "name": role.Name})
	jsonio.Created(w, role)
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	id, err := reqctx.PathID(r, "id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in rolesvc.Input
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin update role")
	defer cancel()

	role, err := h.Roles.Update(ctx, id, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventRoleUpdated, actor, nil, map[string]string{"role_id": role.ID.Hex(), "name": role.Name})
	jsonio.OK(w, role)
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	actor, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	id, err := reqctx.PathID(r, "id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin delete role")
	defer cancel()

	if err := h.Roles.Delete(ctx, id); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventRoleDeleted, actor, nil, map[string]string{"role_id": id.Hex()})
	jsonio.NoContent(w)
}
