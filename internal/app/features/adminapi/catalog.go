package adminapi

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	evpsvc "github.com/dalemusser/ridehub/internal/app/services/evps"
	subscriptionsvc "github.com/dalemusser/ridehub/internal/app/services/subscriptions"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	evpstore "github.com/dalemusser/ridehub/internal/app/store/evps"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

/*─────────────────────────────────────────────────────────────────────────────*
| /plans                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// ListPlans includes retired plans.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin list plans")
	defer cancel()

	plans, err := h.Subscriptions.ListPlans(ctx, false)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, plans)
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	actor, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in subscriptionsvc.PlanInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin create plan")
	defer cancel()

	plan, err := h.Subscriptions.CreatePlan(ctx, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventPlanCreated, actor, nil, map[string]string{"plan_id": plan.ID.Hex(), "code": plan.Code})
	jsonio.Created(w, plan)
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
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
	var in subscriptionsvc.PlanInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin update plan")
	defer cancel()

	plan, err := h.Subscriptions.UpdatePlan(ctx, id, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventPlanUpdated, actor, nil, map[string]string{"plan_id": plan.ID.Hex(), "code": plan.Code})
	jsonio.OK(w, plan)
}

func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
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
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin delete plan")
	defer cancel()

	if err := h.Subscriptions.DeletePlan(ctx, id); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventPlanDeleted, actor, nil, map[string]string{"plan_id": id.Hex()})
	jsonio.NoContent(w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| /evps                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// ListEvps filters by ?driver_id= and ?status=.
func (h *Handler) ListEvps(w http.ResponseWriter, r *http.Request) {
	driverID, err := reqctx.QueryID(r, "driver_id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	f := evpstore.ListFilter{DriverID: driverID, Status: reqctx.Query(r, "status")}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin list evps")
	defer cancel()

	page, err := h.Evps.List(ctx, f, paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}

// IssueEvp grants a driver a free permit.
func (h *Handler) IssueEvp(w http.ResponseWriter, r *http.Request) {
	actor, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in evpsvc.IssueInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	driverID, err := primitive.ObjectIDFromHex(in.DriverID)
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.BadRequest("Invalid driver_id"))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin issue evp")
	defer cancel()

	e, err := h.Evps.Issue(ctx, driverID, in.ValidityDays, actor)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventEvpIssued, actor, &e.DriverID, map[string]string{
		"evp_id":        e.ID.Hex(),
		"permit_number": e.PermitNumber,
		"days":          strconv.Itoa(in.ValidityDays),
	})
	jsonio.Created(w, e)
}

type revokeInput struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

func (h *Handler) RevokeEvp(w http.ResponseWriter, r *http.Request) {
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
	var in revokeInput
	if r.ContentLength != 0 {
		if err := jsonio.Decode(w, r, &in); err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin revoke evp")
	defer cancel()

	e, err := h.Evps.Revoke(ctx, id, in.Reason)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventEvpRevoked, actor, &e.DriverID, map[string]string{"evp_id": e.ID.Hex(), "reason": in.Reason})
	jsonio.OK(w, e)
}
