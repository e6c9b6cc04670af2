// Package withdrawalsvc lets drivers register payout accounts and request
// withdrawals of their balance, and lets admins approve or reject them.
package withdrawalsvc

import (
	"context"
	"errors"
	"strings"
	"time"

	walletsvc "github.com/dalemusser/ridehub/internal/app/services/wallet"
	bankaccountstore "github.com/dalemusser/ridehub/internal/app/store/bankaccounts"
	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	withdrawalstore "github.com/dalemusser/ridehub/internal/app/store/withdrawals"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrPendingExists     = apierr.BadRequest("You already have a pending withdrawal request")
	ErrBelowMinimum      = apierr.BadRequest("Amount is below the minimum withdrawal")
	ErrExceedsBalance    = apierr.BadRequest("Amount exceeds your available balance")
	ErrNoBankAccount     = apierr.BadRequest("Add a bank account before requesting a withdrawal")
	ErrBankNotFound      = apierr.NotFound("Bank account not found")
	ErrNotFound          = apierr.NotFound("Withdrawal request not found")
	ErrAlreadyProcessed  = apierr.BadRequest("Withdrawal request already processed")
	ErrReasonRequired    = apierr.BadRequest("A reason is required when rejecting a withdrawal")
	ErrInvalidAccountNum = apierr.BadRequest("Account number must be 6 to 34 letters or digits")
)

// Wallet is the part of the wallet service payouts go through.
type Wallet interface {
	Balance(ctx context.Context, userID primitive.ObjectID) (float64, error)
	Debit(ctx context.Context, e walletsvc.Entry) (models.WalletTransaction, error)
	Credit(ctx context.Context, e walletsvc.Entry) (models.WalletTransaction, error)
}

// SettingsSource supplies the minimum withdrawal.
type SettingsSource interface {
	Get(ctx context.Context) (models.PlatformSettings, error)
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

type Service struct {
	requests *withdrawalstore.Store
	accounts *bankaccountstore.Store
	wallet   Wallet
	settings SettingsSource
	events   Publisher
	log      *zap.Logger
}

func New(requests *withdrawalstore.Store, accounts *bankaccountstore.Store, wallet Wallet, settings SettingsSource, pub Publisher, logger *zap.Logger) *Service {
	return &Service{requests: requests, accounts: accounts, wallet: wallet, settings: settings, events: pub, log: logger}
}

/*───────────────────────────────────────────────────────────────────────────*
| Requests                                                                   |
*───────────────────────────────────────────────────────────────────────────*/

// RequestInput is the driver's withdrawal body. An empty bank account
// selects the default one.
type RequestInput struct {
	Amount        float64 `json:"amount" validate:"gt=0"`
	BankAccountID string  `json:"bank_account_id" validate:"omitempty,len=24,hexadecimal"`
}

// Request files a pending withdrawal. Funds stay in the wallet until an
// admin approves it.
func (s *Service) Request(ctx context.Context, driverID primitive.ObjectID, amount float64, bankAccountID *primitive.ObjectID) (models.WithdrawalRequest, error) {
	amount = walletsvc.Round2(amount)
	ps, err := s.settings.Get(ctx)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	if amount <= 0 || amount < ps.MinWithdrawalAmount {
		return models.WithdrawalRequest{}, ErrBelowMinimum
	}
	bal, err := s.wallet.Balance(ctx, driverID)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	if amount > bal {
		return models.WithdrawalRequest{}, ErrExceedsBalance
	}

	account, err := s.payoutAccount(ctx, driverID, bankAccountID)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}

	w, err := s.requests.Create(ctx, models.WithdrawalRequest{
		DriverID:      driverID,
		BankAccountID: account.ID,
		Amount:        amount,
	})
	if errors.Is(err, withdrawalstore.ErrPendingExists) {
		return models.WithdrawalRequest{}, ErrPendingExists
	}
	return w, err
}

func (s *Service) payoutAccount(ctx context.Context, driverID primitive.ObjectID, id *primitive.ObjectID) (*models.BankAccount, error) {
	if id != nil {
		a, err := s.accounts.Get(ctx, driverID, *id)
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrBankNotFound
		}
		return a, err
	}
	list, err := s.accounts.List(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNoBankAccount
	}
	return &list[0], nil
}

// List returns one page of requests.
func (s *Service) List(ctx context.Context, f withdrawalstore.ListFilter, p paging.Params) (paging.Page[models.WithdrawalRequest], error) {
	items, total, err := s.requests.List(ctx, f, p)
	if err != nil {
		return paging.Page[models.WithdrawalRequest]{}, err
	}
	return paging.NewPage(items, total, p), nil
}

// CountPending counts requests awaiting review.
func (s *Service) CountPending(ctx context.Context) (int64, error) {
	return s.requests.CountPending(ctx)
}

// ClaimTTL is how long an approval holds a request before another
// reviewer may take it over.
const ClaimTTL = 2 * time.Minute

// Approve claims the request, debits the driver's wallet once and marks the
// request approved.
//
// The claim makes the reviewer the only writer for the request, so the
// reference-scoped debit is posted at most once and never reversed. If the
// wallet cannot cover the amount the claim is released and the request is
// pending again. An approval interrupted after its debit leaves the request
// processing; once the claim is stale, approving again reuses the posted
// debit and finishes the decision.
func (s *Service) Approve(ctx context.Context, id, reviewer primitive.ObjectID) (*models.WithdrawalRequest, error) {
	w, err := s.requests.Claim(ctx, id, reviewer, time.Now().UTC().Add(-ClaimTTL))
	switch {
	case errors.Is(err, withdrawalstore.ErrAlreadyDecided):
		return nil, ErrAlreadyProcessed
	case errors.Is(err, docstore.ErrNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}

	tx, err := s.wallet.Debit(ctx, walletsvc.Entry{
		UserID:      w.DriverID,
		Category:    models.CategoryWithdrawal,
		BalanceType: models.BalanceEarnings,
		Amount:      w.Amount,
		Reference:   "withdrawal:" + w.ID.Hex(),
		Description: "Withdrawal to bank account",
	})
	if err != nil {
		if errors.Is(err, walletsvc.ErrInsufficientFunds) {
			if rerr := s.requests.Release(ctx, w.ID, reviewer); rerr != nil {
				s.log.Error("withdrawal claim release failed", zap.String("withdrawal_id", w.ID.Hex()), zap.Error(rerr))
			}
		}
		return nil, err
	}

	out, err := s.requests.Decide(ctx, w.ID, models.WithdrawalProcessing, models.WithdrawalApproved, reviewer, "", &tx.ID)
	if err != nil {
		s.log.Error("withdrawal debited but not marked approved",
			zap.String("withdrawal_id", w.ID.Hex()),
			zap.String("transaction_id", tx.ID.Hex()),
			zap.Error(err))
		if errors.Is(err, withdrawalstore.ErrAlreadyDecided) {
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}
	s.processed(ctx, out)
	return out, nil
}

// Reject closes a pending request without moving funds.
func (s *Service) Reject(ctx context.Context, id, reviewer primitive.ObjectID, reason string) (*models.WithdrawalRequest, error) {
	reason = strings.TrimSpace(htmlsanitize.StripTags(reason))
	if reason == "" {
		return nil, ErrReasonRequired
	}
	out, err := s.requests.Decide(ctx, id, models.WithdrawalPending, models.WithdrawalRejected, reviewer, reason, nil)
	switch {
	case errors.Is(err, withdrawalstore.ErrAlreadyDecided):
		return nil, ErrAlreadyProcessed
	case errors.Is(err, docstore.ErrNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	s.processed(ctx, out)
	return out, nil
}

func (s *Service) processed(ctx context.Context, w *models.WithdrawalRequest) {
	s.log.Info("withdrawal processed",
		zap.String("withdrawal_id", w.ID.Hex()),
		zap.String("status", w.Status),
		zap.Float64("amount", w.Amount))
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, events.WithdrawalProcessedEvent{
		WithdrawalID: w.ID,
		DriverID:     w.DriverID,
		Amount:       w.Amount,
		Status:       w.Status,
		Reason:       w.RejectionReason,
	})
}
