package adminapi

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	ratingstore "github.com/dalemusser/ridehub/internal/app/store/ratings"
	ridestore "github.com/dalemusser/ridehub/internal/app/store/rides"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
)

/*─────────────────────────────────────────────────────────────────────────────*
| /rides                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// ListRides filters by ?passenger_id=, ?driver_id=, ?status=, ?from= and ?to=.
func (h *Handler) ListRides(w http.ResponseWriter, r *http.Request) {
	f := ridestore.ListFilter{Status: reqctx.Query(r, "status")}
	var err error
	if f.PassengerID, err = reqctx.QueryID(r, "passenger_id"); err == nil {
		if f.DriverID, err = reqctx.QueryID(r, "driver_id"); err == nil {
			if f.From, err = reqctx.QueryTime(r, "from"); err == nil {
				f.To, err = reqctx.QueryTime(r, "to")
			}
		}
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin list rides")
	defer cancel()

	page, err := h.Rides.List(ctx, f, paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
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
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin get ride")
	defer cancel()

	ride, err := h.Rides.Get(ctx, u, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, ride)
}

// SettleRide retries settlement of a completed ride whose wallet entries
// failed to post.
func (h *Handler) SettleRide(w http.ResponseWriter, r *http.Request) {
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
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin settle ride")
	defer cancel()

	ride, err := h.Rides.RetrySettlement(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventRideSettled, actor, &ride.PassengerID, map[string]string{
		"ride_id":    ride.ID.Hex(),
		"final_fare": strconv.FormatFloat(ride.FinalFare, 'f', 2, 64),
	})
	jsonio.OK(w, ride)
}

// ListRatings filters by ?rater_id=, ?rated_id=, ?rater_role= and
// ?max_stars= (for finding low ratings).
func (h *Handler) ListRatings(w http.ResponseWriter, r *http.Request) {
	f := ratingstore.ListFilter{RaterRole: reqctx.Query(r, "rater_role")}
	var err error
	if f.RaterID, err = reqctx.QueryID(r, "rater_id"); err == nil {
		f.RatedID, err = reqctx.QueryID(r, "rated_id")
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if v := reqctx.Query(r, "max_stars"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 5 {
			apierr.Write(w, r, h.Log, apierr.BadRequest("max_stars must be between 1 and 5"))
			return
		}
		f.MaxStars = n
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin list ratings")
	defer cancel()

	page, err := h.Ratings.List(ctx, f, paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /audit                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// ListAudit filters by ?user_id=, ?actor_id=, ?category=, ?event_type=,
// ?from= and ?to=.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	f := audit.QueryFilter{
		Category:  reqctx.Query(r, "category"),
		EventType: reqctx.Query(r, "event_type"),
	}
	var err error
	if f.UserID, err = reqctx.QueryID(r, "user_id"); err == nil {
		if f.ActorID, err = reqctx.QueryID(r, "actor_id"); err == nil {
			if f.StartTime, err = reqctx.QueryTime(r, "from"); err == nil {
				f.EndTime, err = reqctx.QueryTime(r, "to")
			}
		}
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin list audit")
	defer cancel()

	p := paging.Parse(r)
	rows, total, err := h.AuditLog.Query(ctx, f, p)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, paging.NewPage(rows, total, p))
}
