package driverapi

import (
	"errors"
	"net/http"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	evpsvc "github.com/dalemusser/ridehub/internal/app/services/evps"
	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	evpstore "github.com/dalemusser/ridehub/internal/app/store/evps"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
)

/*─────────────────────────────────────────────────────────────────────────────*
| /subscription                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list plans")
	defer cancel()

	plans, err := h.Subscriptions.ListPlans(ctx, true)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, plans)
}

// CurrentSubscription puts drivers without one on the free plan.
func (h *Handler) CurrentSubscription(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "current subscription")
	defer cancel()

	sub, err := h.Subscriptions.GetOrCreateCurrent(ctx, uid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, sub)
}

type subscribeInput struct {
	PlanID string `json:"plan_id" validate:"required"`
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in subscribeInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	planID, err := docstore.ParseID(in.PlanID)
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.BadRequest("Invalid plan_id"))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "subscribe")
	defer cancel()

	sub, err := h.Subscriptions.Subscribe(ctx, uid, planID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.Created(w, sub)
}

func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "cancel subscription")
	defer cancel()

	if err := h.Subscriptions.Cancel(ctx, uid); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, jsonio.Message{Message: "Subscription cancelled"})
}

func (h *Handler) SubscriptionHistory(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "subscription history")
	defer cancel()

	subs, err := h.Subscriptions.History(ctx, uid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, subs)
}

/*─────────────────────────────────────────────────────────────────────────────*
| /evp                                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) PurchaseEvp(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "purchase evp")
	defer cancel()

	evp, err := h.Evps.Purchase(ctx, uid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.Created(w, evp)
}

// CurrentEvp answers {"evp": null} when the driver holds no valid permit.
func (h *Handler) CurrentEvp(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "current evp")
	defer cancel()

	evp, err := h.Evps.GetActive(ctx, uid)
	if err != nil && !errors.Is(err, evpsvc.ErrNotFound) {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, map[string]any{"evp": evp})
}

func (h *Handler) ListEvps(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list evps")
	defer cancel()

	page, err := h.Evps.List(ctx, evpstore.ListFilter{DriverID: &uid, Status: reqctx.Query(r, "status")}, paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}
