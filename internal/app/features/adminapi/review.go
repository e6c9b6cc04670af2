package adminapi

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	documentsvc "github.com/dalemusser/ridehub/internal/app/services/documents"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	withdrawalstore "github.com/dalemusser/ridehub/internal/app/store/withdrawals"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

/*─────────────────────────────────────────────────────────────────────────────*
| /documents/{kind}                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func kindParam(r *http.Request) documentsvc.Kind {
	return documentsvc.Kind(chi.URLParam(r, "kind"))
}

// PendingDocuments lists uploads awaiting review, oldest first.
func (h *Handler) PendingDocuments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin pending documents")
	defer cancel()

	page, err := h.Documents.Pending(ctx, kindParam(r), paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}

func (h *Handler) ReviewDocument(w http.ResponseWriter, r *http.Request) {
	actor, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	id, err := reqctx.PathID(r, "id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in documentsvc.ReviewInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin review document")
	defer cancel()

	kind := kindParam(r)
	doc, err := h.Documents.Review(ctx, kind, id, in, actor)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	event := audit.EventDocumentApproved
	if doc.Status == models.DocRejected {
		event = audit.EventDocumentRejected
	}
	h.Audit.Admin(ctx, r, event, actor, &doc.DriverID, map[string]string{
		"kind":          string(kind),
		"document_id":   doc.ID.Hex(),
		"document_type": doc.DocumentType,
	})
	jsonio.OK(w, doc)
}

/*─────────────────────────────────────────────────────────────────────────────*
| /withdrawals                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// ListWithdrawals filters by ?driver_id= and ?status=.
func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	driverID, err := reqctx.QueryID(r, "driver_id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	f := withdrawalstore.ListFilter{DriverID: driverID, Status: reqctx.Query(r, "status")}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin list withdrawals")
	defer cancel()

	page, err := h.Withdrawals.List(ctx, f, paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}

func withdrawalDetails(wr *models.WithdrawalRequest) map[string]string {
	return map[string]string{
		"withdrawal_id": wr.ID.Hex(),
		"amount":        strconv.FormatFloat(wr.Amount, 'f', 2, 64),
	}
}

// ApproveWithdrawal debits the driver's wallet and marks the request paid.
func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	actor, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	id, err := reqctx.PathID(r, "id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin approve withdrawal")
	defer cancel()

	wr, err := h.Withdrawals.Approve(ctx, id, actor)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventWithdrawalApproved, actor, &wr.DriverID, withdrawalDetails(wr))
	jsonio.OK(w, wr)
}

type rejectInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	actor, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	id, err := reqctx.PathID(r, "id")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in rejectInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin reject withdrawal")
	defer cancel()

	wr, err := h.Withdrawals.Reject(ctx, id, actor, in.Reason)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	details := withdrawalDetails(wr)
	details["reason"] = wr.RejectionReason
	h.Audit.Admin(ctx, r, audit.EventWithdrawalRejected, actor, &wr.DriverID, details)
	jsonio.OK(w, wr)
}
