// internal/app/features/passengerapi/routes.go
package passengerapi

import (
	"github.com/dalemusser/ridehub/internal/app/features/account"
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves /api/user. Every endpoint requires the passenger role.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RolePassenger))

	account.Register(r, h.Account)

	r.Post("/rides/estimate", h.Estimate)
	r.Post("/rides", h.RequestRide)
	r.Get("/rides", h.ListRides)
	r.Get("/rides/active", h.ActiveRide)
	r.Get("/rides/{id}", h.GetRide)
	r.Post("/rides/{id}/cancel", h.CancelRide)
	r.Post("/rides/{id}/rating", h.RateDriver)

	r.Get("/ratings/received", h.RatingsReceived)
	r.Get("/ratings/given", h.RatingsGiven)
	r.Get("/ratings/summary", h.RatingSummary)

	r.Get("/emergency-contacts", h.ListContacts)
	r.Post("/emergency-contacts", h.AddContact)
	r.Put("/emergency-contacts/{id}", h.UpdateContact)
	r.Delete("/emergency-contacts/{id}", h.DeleteContact)
	return r
}
