// internal/app/features/account/routes.go
package account

import "github.com/go-chi/chi/v5"

// Register adds the account endpoints to r. The passenger and driver
// surfaces both call it on their own subrouters.
func Register(r chi.Router, h *Handler) {
	r.Get("/profile", h.GetProfile)
	r.Patch("/profile", h.UpdateProfile)
	r.Put("/password", h.ChangePassword)
	r.Post("/device-tokens", h.AddDeviceToken)
	r.Delete("/device-tokens", h.RemoveDeviceToken)

	r.Get("/wallet", h.Balance)
	r.Post("/wallet/deposit", h.Deposit)
	r.Get("/wallet/transactions", h.Transactions)

	r.Get("/notifications", h.Notifications)
	r.Get("/notifications/unread-count", h.UnreadCount)
	r.Put("/notifications/read-all", h.MarkAllRead)
	r.Put("/notifications/{id}/read", h.MarkRead)
}
