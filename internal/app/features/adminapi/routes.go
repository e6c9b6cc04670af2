// internal/app/features/adminapi/routes.go
package adminapi

import (
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/app/system/authz"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves /api/admin. Every endpoint requires the admin role; most
// also need a permission from the caller's admin role.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))

	need := func(perm string) chi.Router {
		return r.With(authz.RequirePermission(h.Perms, h.Log, perm))
	}

	r.Get("/dashboard", h.Dashboard)
	r.Get("/profile", h.Account.GetProfile)
	r.Patch("/profile", h.Account.UpdateProfile)
	r.Put("/password", h.Account.ChangePassword)
	r.Get("/notifications", h.Account.Notifications)
	r.Put("/notifications/{id}/read", h.Account.MarkRead)
	r.Get("/settings", h.GetSettings)
	need(models.PermSettingsWrite).Put("/settings", h.UpdateSettings)

	need(models.PermUsersRead).Get("/users", h.ListUsers)
	need(models.PermUsersRead).Get("/users/{id}", h.GetUser)
	need(models.PermUsersWrite).Put("/users/{id}/status", h.SetUserStatus)
	need(models.PermUsersWrite).Post("/admins", h.CreateAdmin)
	need(models.PermRolesWrite).Put("/users/{id}/role", h.AssignRole)

	need(models.PermRolesWrite).Get("/roles", h.ListRoles)
	need(models.PermRolesWrite).Get("/roles/permissions", h.PermissionCatalogue)
	need(models.PermRolesWrite).Get("/roles/{id}", h.GetRole)
	need(models.PermRolesWrite).Post("/roles", h.CreateRole)
	need(models.PermRolesWrite).Put("/roles/{id}", h.UpdateRole)
	need(models.PermRolesWrite).Delete("/roles/{id}", h.DeleteRole)

	need(models.PermDocumentsReview).Get("/documents/{kind}/pending", h.PendingDocuments)
	need(models.PermDocumentsReview).Put("/documents/{kind}/{id}/review", h.ReviewDocument)

	need(models.PermWithdrawalsReview).Get("/withdrawals", h.ListWithdrawals)
	need(models.PermWithdrawalsReview).Post("/withdrawals/{id}/approve", h.ApproveWithdrawal)
	need(models.PermWithdrawalsReview).Post("/withdrawals/{id}/reject", h.RejectWithdrawal)

	need(models.PermTransactionsExport).Get("/transactions", h.ListTransactions)
	need(models.PermTransactionsExport).Get("/transactions/export", h.ExportTransactions)

	need(models.PermRidesRead).Get("/rides", h.ListRides)
	need(models.PermRidesRead).Get("/rides/{id}", h.GetRide)
	need(models.PermWithdrawalsReview).Post("/rides/{id}/settle", h.SettleRide)
	need(models.PermRidesRead).Get("/ratings", h.ListRatings)

	need(models.PermSubscriptionsWrite).Get("/plans", h.ListPlans)
	need(models.PermSubscriptionsWrite).Post("/plans", h.CreatePlan)
	need(models.PermSubscriptionsWrite).Put("/plans/{id}", h.UpdatePlan)
	need(models.PermSubscriptionsWrite).Delete("/plans/{id}", h.DeletePlan)

	need(models.PermEvpsWrite).Get("/evps", h.ListEvps)
	need(models.PermEvpsWrite).Post("/evps", h.IssueEvp)
	need(models.PermEvpsWrite).Post("/evps/{id}/revoke", h.RevokeEvp)

	need(models.PermAuditRead).Get("/audit", h.ListAudit)
	return r
}
