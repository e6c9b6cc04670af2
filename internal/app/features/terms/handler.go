// internal/app/features/terms/handler.go
package terms

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.uber.org/zap"
)

// SettingsSource reads the platform settings.
type SettingsSource interface {
	Get(ctx context.Context) (models.PlatformSettings, error)
}

type pageData struct {
	Title     string     `json:"title"`
	HTML      string     `json:"html"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type supportData struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Handler serves the public legal pages. The HTML is sanitized when an
// admin saves it.
type Handler struct {
	Settings SettingsSource
	Log      *zap.Logger
}

func NewHandler(settings SettingsSource, logger *zap.Logger) *Handler {
	return &Handler{
		Settings: settings,
		Log:      logger,
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (models.PlatformSettings, bool) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load legal pages")
	defer cancel()

	ps, err := h.Settings.Get(ctx)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return ps, false
	}
	return ps, true
}

func (h *Handler) ServeTerms(w http.ResponseWriter, r *http.Request) {
	if ps, ok := h.load(w, r); ok {
		jsonio.OK(w, pageData{Title: "Terms of Service", HTML: ps.TermsHTML, UpdatedAt: ps.UpdatedAt})
	}
}

func (h *Handler) ServePrivacy(w http.ResponseWriter, r *http.Request) {
	if ps, ok := h.load(w, r); ok {
		jsonio.OK(w, pageData{Title: "Privacy Policy", HTML: ps.PrivacyHTML, UpdatedAt: ps.UpdatedAt})
	}
}

func (h *Handler) ServeSupport(w http.ResponseWriter, r *http.Request) {
	if ps, ok := h.load(w, r); ok {
		jsonio.OK(w, supportData{Email: ps.SupportEmail, Phone: ps.SupportPhone})
	}
}
