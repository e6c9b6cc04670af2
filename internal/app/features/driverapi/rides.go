package driverapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	ridesvc "github.com/dalemusser/ridehub/internal/app/services/rides"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *Handler) ListRides(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list rides")
	defer cancel()

	page, err := h.Rides.ListForDriver(ctx, uid, reqctx.Query(r, "status"), paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}

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
| POST /rides/{id}/accept|arrive|start|complete|cancel                         |
*─────────────────────────────────────────────────────────────────────────────*/

type rideStep func(ctx context.Context, driverID, rideID primitive.ObjectID) (*models.Ride, error)

func (h *Handler) step(op string, fn rideStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := reqctx.UserID(r)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		id, err := reqctx.PathID(r, "id")
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
		defer cancel()

		ride, err := fn(ctx, uid, id)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		jsonio.OK(w, ride)
	}
}

func (h *Handler) AcceptRide(w http.ResponseWriter, r *http.Request) {
	h.step("accept ride", h.Rides.Accept)(w, r)
}

func (h *Handler) ArriveRide(w http.ResponseWriter, r *http.Request) {
	h.step("arrive ride", h.Rides.Arrive)(w, r)
}

func (h *Handler) StartRide(w http.ResponseWriter, r *http.Request) {
	h.step("start ride", h.Rides.Start)(w, r)
}

// CompleteRide accepts an optional {"final_fare": n}; the estimate is
// charged otherwise.
func (h *Handler) CompleteRide(w http.ResponseWriter, r *http.Request) {
	var in ridesvc.CompleteInput
	if r.ContentLength != 0 {
		if err := jsonio.Decode(w, r, &in); err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
	}
	h.step("complete ride", func(ctx context.Context, driverID, rideID primitive.ObjectID) (*models.Ride, error) {
		return h.Rides.Complete(ctx, driverID, rideID, in)
	})(w, r)
}

func (h *Handler) CancelRide(w http.ResponseWriter, r *http.Request) {
	u, err := reqctx.User(r)
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
	h.step("cancel ride", func(ctx context.Context, _, rideID primitive.ObjectID) (*models.Ride, error) {
		return h.Rides.Cancel(ctx, u, rideID, in)
	})(w, r)
}
