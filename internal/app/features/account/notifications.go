package account

import (
	"net/http"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /notifications                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list notifications")
	defer cancel()

	page, err := h.Inbox.List(ctx, uid, reqctx.Query(r, "unread") == "true", paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /notifications/unread-count                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "unread count")
	defer cancel()

	n, err := h.Inbox.UnreadCount(ctx, uid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, map[string]int64{"count": n})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /notifications/{id}/read                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	id, err := reqctx.PathID(r, "id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark notification read")
	defer cancel()

	if err := h.Inbox.MarkRead(ctx, uid, id); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.NoContent(w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /notifications/read-all                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark all notifications read")
	defer cancel()

	n, err := h.Inbox.MarkAllRead(ctx, uid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, map[string]int64{"updated": n})
}
