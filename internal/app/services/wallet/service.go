// Package walletsvc owns the wallet ledger. Every balance change appends a
// ledger row and moves the cached wallet fields in the same transaction.
package walletsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	walletstore "github.com/dalemusser/ridehub/internal/app/store/wallets"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/csvutil"
	"github.com/dalemusser/ridehub/internal/app/system/metrics"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/txn"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MinDeposit is the smallest accepted top-up.
const MinDeposit = 0.01

var (
	ErrInsufficientFunds = apierr.BadRequest("Insufficient wallet balance")
	ErrMinimumDeposit    = apierr.BadRequest("Minimum deposit amount is 0.01")
	ErrInvalidAmount     = apierr.BadRequest("Amount must be greater than zero")
)

// SettingsSource supplies the platform currency.
type SettingsSource interface {
	Get(ctx context.Context) (models.PlatformSettings, error)
}

type Service struct {
	db       *mongo.Database
	store    *walletstore.Store
	settings SettingsSource
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func New(db *mongo.Database, store *walletstore.Store, settings SettingsSource, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{db: db, store: store, settings: settings, metrics: m, log: logger}
}

// Round2 rounds to cents.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }

func (s *Service) currency(ctx context.Context) string {
	ps, err := s.settings.Get(ctx)
	if err != nil || ps.Currency == "" {
		return models.DefaultPlatformSettings().Currency
	}
	return ps.Currency
}

// GetWallet returns the caller's wallet, creating it on first use.
func (s *Service) GetWallet(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error) {
	return s.store.GetOrCreate(ctx, userID, s.currency(ctx))
}

// Entry describes one ledger movement.
type Entry struct {
	UserID      primitive.ObjectID
	Type        string // credit | debit
	Category    string
	BalanceType string
	Amount      float64
	// Reference makes the entry idempotent; empty generates one.
	Reference   string
	RideID      *primitive.ObjectID
	Description string
}

// Post appends e and updates the cached balance atomically. Posting a
// reference that already exists returns the existing row.
func (s *Service) Post(ctx context.Context, e Entry) (models.WalletTransaction, error) {
	e.Amount = Round2(e.Amount)
	if e.Amount <= 0 {
		return models.WalletTransaction{}, ErrInvalidAmount
	}
	if e.Type != models.TxnCredit && e.Type != models.TxnDebit {
		return models.WalletTransaction{}, fmt.Errorf("wallet: unknown entry type %q", e.Type)
	}
	if e.BalanceType == "" {
		e.BalanceType = models.BalanceWallet
	}
	if e.Reference == "" {
		e.Reference = strings.ReplaceAll(uuid.New().String(), "-", "")
	} else if prior, err := s.store.TxnByReference(ctx, e.Reference); err == nil {
		return *prior, nil
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return models.WalletTransaction{}, err
	}

	currency := s.currency(ctx)
	var out models.WalletTransaction
	var walletID primitive.ObjectID
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		w, err := s.store.GetOrCreate(ctx, e.UserID, currency)
		if err != nil {
			return err
		}
		walletID = w.ID
		before, after, err := s.store.Apply(ctx, w.ID, e.Type, e.Amount)
		if err != nil {
			return err
		}
		out, err = s.store.InsertTxn(ctx, models.WalletTransaction{
			WalletID:      w.ID,
			UserID:        e.UserID,
			Type:          e.Type,
			Category:      e.Category,
			BalanceType:   e.BalanceType,
			Amount:        e.Amount,
			BalanceBefore: Round2(before),
			BalanceAfter:  Round2(after),
			Status:        models.TxnCompleted,
			Reference:     e.Reference,
			RideID:        e.RideID,
			Description:   e.Description,
		})
		return err
	})
	switch {
	case errors.Is(err, walletstore.ErrInsufficientFunds):
		return models.WalletTransaction{}, ErrInsufficientFunds
	case errors.Is(err, walletstore.ErrDuplicateReference):
		// Lost a race on the same reference. Without transactions the
		// projection may have moved, so rebuild it from the ledger.
		if !walletID.IsZero() {
			if _, rerr := s.reconcileWallet(ctx, walletID); rerr != nil {
				s.log.Warn("reconcile after duplicate reference failed", zap.Error(rerr))
			}
		}
		prior, lerr := s.store.TxnByReference(ctx, e.Reference)
		if lerr != nil {
			return models.WalletTransaction{}, lerr
		}
		return *prior, nil
	case err != nil:
		return models.WalletTransaction{}, err
	}

	s.metrics.WalletTransaction(e.Type, e.Category)
	return out, nil
}

// Deposit records a completed top-up. Amounts below MinDeposit are refused.
func (s *Service) Deposit(ctx context.Context, userID primitive.ObjectID, amount float64, description string) (models.WalletTransaction, error) {
	if math.IsNaN(amount) || Round2(amount) < MinDeposit {
		return models.WalletTransaction{}, ErrMinimumDeposit
	}
	if description == "" {
		description = "Wallet top-up"
	}
	return s.Post(ctx, Entry{
		UserID:      userID,
		Type:        models.TxnCredit,
		Category:    models.CategoryDeposit,
		BalanceType: models.BalanceWallet,
		Amount:      amount,
		Description: description,
	})
}

// Credit adds funds for an internal reason (earnings, refunds).
func (s *Service) Credit(ctx context.Context, e Entry) (models.WalletTransaction, error) {
	e.Type = models.TxnCredit
	return s.Post(ctx, e)
}

// Debit removes funds; it fails with ErrInsufficientFunds rather than overdraw.
func (s *Service) Debit(ctx context.Context, e Entry) (models.WalletTransaction, error) {
	e.Type = models.TxnDebit
	return s.Post(ctx, e)
}

// Balance computes the spendable balance from the ledger: completed
// credits minus completed debits of the tracked types, never below zero.
func (s *Service) Balance(ctx context.Context, userID primitive.ObjectID) (float64, error) {
	w, err := s.store.GetByUser(ctx, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	t, err := s.store.Totals(ctx, w.ID)
	if err != nil {
		return 0, err
	}
	return ledgerBalance(t), nil
}

func ledgerBalance(t walletstore.LedgerTotals) float64 {
	return math.Max(0, Round2(t.Credits-t.Debits))
}

// ReconcileResult reports what Reconcile changed.
type ReconcileResult struct {
	WalletID primitive.ObjectID `json:"wallet_id"`
	Cached   float64            `json:"cached"`
	Ledger   float64            `json:"ledger"`
	Drift    float64            `json:"drift"`
}

// Reconcile rewrites the cached wallet fields from the ledger.
func (s *Service) Reconcile(ctx context.Context, userID primitive.ObjectID) (ReconcileResult, error) {
	w, err := s.store.GetByUser(ctx, userID)
	if err != nil {
		return ReconcileResult{}, err
	}
	return s.reconcileWallet(ctx, w.ID)
}

func (s *Service) reconcileWallet(ctx context.Context, walletID primitive.ObjectID) (ReconcileResult, error) {
	w, err := s.store.Get(ctx, walletID)
	if err != nil {
		return ReconcileResult{}, err
	}
	t, err := s.store.Totals(ctx, walletID)
	if err != nil {
		return ReconcileResult{}, err
	}
	bal := ledgerBalance(t)
	if err := s.store.SetProjection(ctx, walletID, bal, Round2(t.Credits), Round2(t.Debits)); err != nil {
		return ReconcileResult{}, err
	}
	res := ReconcileResult{WalletID: walletID, Cached: w.Balance, Ledger: bal, Drift: Round2(bal - w.Balance)}
	if res.Drift != 0 {
		s.log.Warn("wallet projection drift corrected",
			zap.String("wallet_id", walletID.Hex()), zap.Float64("drift", res.Drift))
	}
	return res, nil
}

// ListTransactions returns one page of ledger rows.
func (s *Service) ListTransactions(ctx context.Context, f walletstore.TxnFilter, p paging.Params) (paging.Page[models.WalletTransaction], error) {
	rows, total, err := s.store.ListTxns(ctx, f, p)
	if err != nil {
		return paging.Page[models.WalletTransaction]{}, err
	}
	return paging.NewPage(rows, total, p), nil
}

// ExportCSV streams matching ledger rows to w and returns the row count.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, f walletstore.TxnFilter) (int, error) {
	tw, err := csvutil.NewTransactionWriter(w)
	if err != nil {
		return 0, err
	}
	if err := s.store.EachTxn(ctx, f, tw.Write); err != nil {
		return tw.Rows(), err
	}
	return tw.Rows(), tw.Flush()
}
