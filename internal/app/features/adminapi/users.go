package adminapi

import (
	"net/http"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	usersvc "github.com/dalemusser/ridehub/internal/app/services/users"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// ListUsers filters by ?role=, ?status= and ?search= (name prefix or email).
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	f := userstore.ListFilter{
		Role:   reqctx.Query(r, "role"),
		Status: reqctx.Query(r, "status"),
		Search: reqctx.Query(r, "search"),
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin list users")
	defer cancel()

	page, err := h.Users.ListUsers(ctx, f, paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := reqctx.PathID(r, "id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin get user")
	defer cancel()

	u, err := h.Users.GetUser(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /users/{id}/status                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

type statusInput struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
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
	var in statusInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin set user status")
	defer cancel()

	u, err := h.Users.SetStatus(ctx, id, in.Status, actor)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	event := audit.EventUserEnabled
	if u.Status == models.UserStatusDisabled {
		event = audit.EventUserDisabled
	}
	h.Audit.Admin(ctx, r, event, actor, &u.ID, nil)
	jsonio.OK(w, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admins                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	actor, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in usersvc.CreateAdminInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin create admin")
	defer cancel()

	u, err := h.Users.CreateAdmin(ctx, in, actor)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventAdminCreated, actor, &u.ID, map[string]string{"email": u.Email})
	jsonio.Created(w, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /users/{id}/role                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// roleInput assigns role_id; null clears the admin's role.
type roleInput struct {
	RoleID *string `json:"role_id" validate:"omitempty,len=24,hexadecimal"`
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
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
	var in roleInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var roleID *primitive.ObjectID
	details := map[string]string{"role_id": ""}
	if in.RoleID != nil {
		rid, err := primitive.ObjectIDFromHex(*in.RoleID)
		if err != nil {
			apierr.Write(w, r, h.Log, apierr.BadRequest("Invalid role_id"))
			return
		}
		roleID = &rid
		details["role_id"] = rid.Hex()
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin assign role")
	defer cancel()

	u, err := h.Users.AssignRole(ctx, id, roleID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventRoleAssigned, actor, &u.ID, details)
	jsonio.OK(w, u)
}
