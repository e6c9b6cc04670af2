package driverapi

import (
	"context"
	"net/http"

	"github.com/dalemusser/ridehub/internal/app/features/shared/reqctx"
	withdrawalsvc "github.com/dalemusser/ridehub/internal/app/services/withdrawals"
	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	withdrawalstore "github.com/dalemusser/ridehub/internal/app/store/withdrawals"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

/*─────────────────────────────────────────────────────────────────────────────*
| /bank-accounts                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ListBankAccounts(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list bank accounts")
	defer cancel()

	rows, err := h.Withdrawals.ListAccounts(ctx, uid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, rows)
}

func (h *Handler) AddBankAccount(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in withdrawalsvc.AccountInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "add bank account")
	defer cancel()

	acct, err := h.Withdrawals.AddAccount(ctx, uid, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.Created(w, acct)
}

func (h *Handler) UpdateBankAccount(w http.ResponseWriter, r *http.Request) {
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
	var in withdrawalsvc.AccountUpdate
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update bank account")
	defer cancel()

	acct, err := h.Withdrawals.UpdateAccount(ctx, uid, id, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, acct)
}

func (h *Handler) DeleteBankAccount(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, "delete bank account", h.Withdrawals.DeleteAccount)
}

func (h *Handler) SetDefaultBankAccount(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, "default bank account", h.Withdrawals.SetDefaultAccount)
}

func (h *Handler) accountAction(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, driverID, id primitive.ObjectID) error) {
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
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	if err := fn(ctx, uid, id); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.NoContent(w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| /withdrawals                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var in withdrawalsvc.RequestInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var bankID *primitive.ObjectID
	if in.BankAccountID != "" {
		id, err := docstore.ParseID(in.BankAccountID)
		if err != nil {
			apierr.Write(w, r, h.Log, apierr.BadRequest("Invalid bank_account_id"))
			return
		}
		bankID = &id
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "request withdrawal")
	defer cancel()

	req, err := h.Withdrawals.Request(ctx, uid, in.Amount, bankID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.Created(w, req)
}

func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	uid, err := reqctx.UserID(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list withdrawals")
	defer cancel()

	page, err := h.Withdrawals.List(ctx, withdrawalstore.ListFilter{DriverID: &uid, Status: reqctx.Query(r, "status")}, paging.Parse(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	jsonio.OK(w, page)
}
