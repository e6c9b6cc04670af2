package account

import (
	"net/http"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	walletstore "github.com/dalemusser/ridehub/internal/app/store/wallets"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
)

// balanceResponse pairs the cached wallet row with the ledger balance.
type balanceResponse struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
	Credited float64 `json:"total_credited"`
	Debited  float64 `json:"total_debited"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /wallet                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "wallet balance")
	defer cancel()

	wal, err := h.Wallet.GetWallet(ctx, uid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	bal, err := h.Wallet.Balance(ctx, uid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, balanceResponse{
		Balance:  bal,
		Currency: wal.Currency,
		Credited: wal.TotalCredited,
		Debited:  wal.TotalDebited,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /wallet/deposit                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

type depositInput struct {
	Amount      float64 `json:"amount" validate:"gt=0"`
	Description string  `json:"description" validate:"omitempty,max=200"`
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in depositInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "wallet deposit")
	defer cancel()

	txn, err := h.Wallet.Deposit(ctx, uid, in.Amount, in.Description)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.Created(w, txn)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /wallet/transactions                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	from, err := reqctx.QueryTime(r, "from")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	to, err := reqctx.QueryTime(r, "to")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "wallet transactions")
	defer cancel()

	page, err := h.Wallet.ListTransactions(ctx, walletstore.TxnFilter{
		UserID:   &uid,
		Type:     reqctx.Query(r, "type"),
		Category: reqctx.Query(r, "category"),
		From:     from,
		To:       to,
	}, paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}
