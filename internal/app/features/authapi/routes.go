// internal/app/features/authapi/routes.go
package authapi

import "github.com/go-chi/chi/v5"

// Routes serves /api/auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset-password", h.ResetPassword)
	return r
}

// AdminRoutes serves /api/admin/auth.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.AdminLogin)
	r.Post("/logout", h.AdminLogout)
	return r
}
