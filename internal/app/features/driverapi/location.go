package driverapi

import (
	"net/http"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
)

type locationInput struct {
	Lat     *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
	Heading float64  `json:"heading" validate:"gte=0,lt=360"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /location                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in locationInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update location")
	defer cancel()

	loc, err := h.Locations.UpdateLocation(ctx, uid, *in.Lat, *in.Lng, in.Heading)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, loc)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /availability                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

type availabilityInput struct {
	Online *bool `json:"online" validate:"required"`
}

// SetAvailability needs the stored driver so the verified flag is current.
func (h *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in availabilityInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set availability")
	defer cancel()

	driver, err := h.Users.GetProfile(ctx, uid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	loc, err := h.Locations.SetAvailability(ctx, *driver, *in.Online)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, loc)
}
