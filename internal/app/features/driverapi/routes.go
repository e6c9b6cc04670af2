// internal/app/features/driverapi/routes.go
package driverapi

import (
	"github.com/dalemusser/ridehub/internal/app/features/account"
	documentsvc "github.com/dalemusser/ridehub/internal/app/services/documents"
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves /api/driver. Every endpoint requires the driver role.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleDriver))

	account.Register(r, h.Account)

	r.Put("/location", h.UpdateLocation)
	r.Put("/availability", h.SetAvailability)

	r.Get("/rides", h.ListRides)
	r.Get("/rides/active", h.ActiveRide)
	r.Get("/rides/{id}", h.GetRide)
	r.Post("/rides/{id}/accept", h.AcceptRide)
	r.Post("/rides/{id}/arrive", h.ArriveRide)
	r.Post("/rides/{id}/start", h.StartRide)
	r.Post("/rides/{id}/complete", h.CompleteRide)
	r.Post("/rides/{id}/cancel", h.CancelRide)
	r.Post("/rides/{id}/rating", h.RatePassenger)

	r.Get("/ratings/received", h.RatingsReceived)
	r.Get("/ratings/summary", h.RatingSummary)

	r.Post("/documents", h.upload(documentsvc.KindDriver))
	r.Get("/documents", h.listDocuments(documentsvc.KindDriver))
	r.Get("/documents/{type}/history", h.documentHistory(documentsvc.KindDriver))
	r.Post("/vehicle-documents", h.upload(documentsvc.KindVehicle))
	r.Get("/vehicle-documents", h.listDocuments(documentsvc.KindVehicle))
	r.Get("/vehicle-documents/{type}/history", h.documentHistory(documentsvc.KindVehicle))

	r.Get("/bank-accounts", h.ListBankAccounts)
	r.Post("/bank-accounts", h.AddBankAccount)
	r.Put("/bank-accounts/{id}", h.UpdateBankAccount)
	r.Delete("/bank-accounts/{id}", h.DeleteBankAccount)
	r.Put("/bank-accounts/{id}/default", h.SetDefaultBankAccount)

	r.Post("/withdrawals", h.RequestWithdrawal)
	r.Get("/withdrawals", h.ListWithdrawals)

	r.Get("/subscription/plans", h.ListPlans)
	r.Get("/subscription", h.CurrentSubscription)
	r.Post("/subscription", h.Subscribe)
	r.Post("/subscription/cancel", h.CancelSubscription)
	r.Get("/subscription/history", h.SubscriptionHistory)

	r.Post("/evp/purchase", h.PurchaseEvp)
	r.Get("/evp", h.CurrentEvp)
	r.Get("/evps", h.ListEvps)
	return r
}
