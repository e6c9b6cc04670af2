// internal/app/features/terms/routes.go
package terms

import "github.com/go-chi/chi/v5"

// Routes serves /api/pages. No sign-in is required.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/terms", h.ServeTerms)
	r.Get("/privacy", h.ServePrivacy)
	r.Get("/support", h.ServeSupport)
	return r
}
