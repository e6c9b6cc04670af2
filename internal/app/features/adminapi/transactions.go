package adminapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	walletstore "github.com/dalemusser/ridehub/internal/app/store/wallets"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// txnFilter reads ?user_id=, ?type=, ?category=, ?status=, ?from= and ?to=.
func txnFilter(r *http.Request) (walletstore.TxnFilter, error) {
	f := walletstore.TxnFilter{
		Type:     reqctx.Query(r, "type"),
		Category: reqctx.Query(r, "category"),
		Status:   reqctx.Query(r, "status"),
	}
	var err error
	if f.UserID, err = reqctx.QueryID(r, "user_id"); err != nil {
		return f, err
	}
	if f.From, err = reqctx.QueryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = reqctx.QueryTime(r, "to"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := txnFilter(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin list transactions")
	defer cancel()

	page, err := h.Wallet.ListTransactions(ctx, f, paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}

// ExportTransactions streams the filtered ledger as CSV. Once the first
// row is written the status is fixed, so later failures are only logged.
func (h *Handler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	actor, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	f, err := txnFilter(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "admin export transactions")
	defer cancel()

	filename := fmt.Sprintf("transactions-%s.csv", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	rows, err := h.Wallet.ExportCSV(ctx, w, f)
	if err != nil {
		h.Log.Error("transaction export failed", zap.Int("rows", rows), zap.Error(err))
		return
	}
	h.Audit.Admin(ctx, r, audit.EventTransactionsExport, actor, f.UserID, map[string]string{"rows": strconv.Itoa(rows)})
}
