package passengerapi

import (
	"errors"
	"net/http"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	ridesvc "github.com/dalemusser/ridehub/internal/app/services/rides"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /rides/estimate                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var in ridesvc.EstimateInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "fare estimate")
	defer cancel()

	est, err := h.Rides.EstimateFare(ctx, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, est)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /rides                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) RequestRide(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in ridesvc.RequestInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "request ride")
	defer cancel()

	res, err := h.Rides.Request(ctx, uid, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.Created(w, res)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /rides                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ListRides(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list rides")
	defer cancel()

	page, err := h.Rides.ListForPassenger(ctx, uid, reqctx.Query(r, "status"), paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /rides/active                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// ActiveRide answers {"ride": null} when nothing is in progress.
func (h *Handler) ActiveRide(w http.ResponseWriter, r *http.Request) {
	u, err := reqctx.User(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "active ride")
	defer cancel()

	ride, err := h.Rides.Active(ctx, u)
	if err != nil && !errors.Is(err, ridesvc.ErrRideNotFound) {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, map[string]any{"ride": ride})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /rides/{id}                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) GetRide(w http.ResponseWriter, r *http.Request) {
	u, err := reqctx.User(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	id, err := reqctx.PathID(r, "id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get ride")
	defer cancel()

	ride, err := h.Rides.Get(ctx, u, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, ride)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /rides/{id}/cancel                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) CancelRide(w http.ResponseWriter, r *http.Request) {
	u, err := reqctx.User(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	id, err := reqctx.PathID(r, "id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in ridesvc.CancelInput
	if r.ContentLength != 0 {
		if err := jsonio.Decode(w, r, &in); err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "cancel ride")
	defer cancel()

	ride, err := h.Rides.Cancel(ctx, u, id, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, ride)
}
