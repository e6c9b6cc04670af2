package driverapi

import (
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	documentsvc "github.com/dalemusser/ridehub/internal/app/services/documents"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /documents, /vehicle-documents (multipart)                              |
*─────────────────────────────────────────────────────────────────────────────*/

// upload reads the multipart fields "type", "file" and optional
// "expires_at" (YYYY-MM-DD).
func (h *Handler) upload(k documentsvc.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := reqctx.UserID(r)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, documentsvc.MaxUploadBytes+(1<<20))
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			apierr.Write(w, r, h.Log, apierr.BadRequest("Request must be multipart/form-data with a file under 10 MB"))
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile("file")
		if err != nil {
			apierr.Write(w, r, h.Log, documentsvc.ErrEmptyFile)
			return
		}
		defer file.Close()

		var expiresAt *time.Time
		if v := r.FormValue("expires_at"); v != "" {
			t, perr := time.Parse("2006-01-02", v)
			if perr != nil {
				apierr.Write(w, r, h.Log, apierr.BadRequest("expires_at must be a date (YYYY-MM-DD)"))
				return
			}
			expiresAt = &t
		}

		ct := header.Header.Get("Content-Type")
		if ct == "" || ct == "application/octet-stream" {
			ct = mime.TypeByExtension(filepath.Ext(header.Filename))
		}

		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "upload document")
		defer cancel()

		doc, err := h.Documents.Upload(ctx, k, uid, r.FormValue("type"), documentsvc.File{
			Name:        header.Filename,
			ContentType: ct,
			Size:        header.Size,
			Body:        file,
		}, expiresAt)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		jsonio.Created(w, doc)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /documents, /vehicle-documents                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) listDocuments(k documentsvc.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := reqctx.UserID(r)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list documents")
		defer cancel()

		docs, err := h.Documents.ListActive(ctx, k, uid)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		jsonio.OK(w, docs)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /documents/{type}/history                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) documentHistory(k documentsvc.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := reqctx.UserID(r)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "document history")
		defer cancel()

		docs, err := h.Documents.History(ctx, k, uid, chi.URLParam(r, "type"))
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		jsonio.OK(w, docs)
	}
}
