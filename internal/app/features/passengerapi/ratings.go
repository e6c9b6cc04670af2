package passengerapi

import (
	"context"
	"net/http"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	ratingsvc "github.com/dalemusser/ridehub/internal/app/services/ratings"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listFunc func(ctx context.Context, userID primitive.ObjectID, p paging.Params) (paging.Page[models.Rating], error)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /rides/{id}/rating                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// RateDriver records the passenger's rating of the ride's driver. A second
// rating for the same ride is a 409.
func (h *Handler) RateDriver(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	rideID, err := reqctx.PathID(r, "id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in ratingsvc.Input
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "rate driver")
	defer cancel()

	rating, err := h.Ratings.RateDriver(ctx, uid, rideID, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.Created(w, rating)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /ratings/received, /ratings/given, /ratings/summary                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) RatingsReceived(w http.ResponseWriter, r *http.Request) {
	h.listRatings(w, r, h.Ratings.ListReceived)
}

func (h *Handler) RatingsGiven(w http.ResponseWriter, r *http.Request) {
	h.listRatings(w, r, h.Ratings.ListGiven)
}

func (h *Handler) listRatings(w http.ResponseWriter, r *http.Request, list listFunc) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list ratings")
	defer cancel()

	page, err := list(ctx, uid, paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}

func (h *Handler) RatingSummary(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "rating summary")
	defer cancel()

	sum, err := h.Ratings.Summary(ctx, uid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, sum)
}
