// internal/app/store/wallets/walletstore.go
package walletstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrInsufficientFunds is returned when a debit would overdraw the cached balance.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	// ErrDuplicateReference is returned when a ledger reference was already used.
	ErrDuplicateReference = errors.New("transaction reference already recorded")
)

// Store manages wallets and their transaction ledger.
type Store struct {
	wallets docstore.Repository[models.Wallet]
	txns    docstore.Repository[models.WalletTransaction]
}

func New(db *mongo.Database) *Store {
	return &Store{
		wallets: docstore.NewRepository[models.Wallet](db, "wallets"),
		txns:    docstore.NewRepository[models.WalletTransaction](db, "wallet_transactions"),
	}
}

// GetOrCreate returns the user's wallet, creating an empty one on first use.
func (s *Store) GetOrCreate(ctx context.Context, userID primitive.ObjectID, currency string) (*models.Wallet, error) {
	now := time.Now().UTC()
	var w models.Wallet
	err := s.wallets.Collection().FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{"$setOnInsert": bson.M{
			"user_id":        userID,
			"balance":        0.0,
			"total_credited": 0.0,
			"total_debited":  0.0,
			"currency":       currency,
			"created_at":     now,
			"updated_at":     now,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&w)
	if mongo.IsDuplicateKeyError(err) {
		// Lost an upsert race; the other writer created it.
		return s.GetByUser(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get or create wallet: %w", err)
	}
	return &w, nil
}

// Get loads a wallet by id.
func (s *Store) Get(ctx context.Context, walletID primitive.ObjectID) (*models.Wallet, error) {
	return s.wallets.FindByID(ctx, walletID)
}

// GetByUser returns the user's wallet or docstore.ErrNotFound.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error) {
	return s.wallets.FindOne(ctx, bson.M{"user_id": userID})
}

// Apply moves the cached balance by amount and returns the balance before
// and after. Debits only match when the balance covers them.
func (s *Store) Apply(ctx context.Context, walletID primitive.ObjectID, typ string, amount float64) (before, after float64, err error) {
	filter := bson.M{"_id": walletID}
	inc := bson.M{"balance": amount, "total_credited": amount}
	if typ == models.TxnDebit {
		filter["balance"] = bson.M{"$gte": amount}
		inc = bson.M{"balance": -amount, "total_debited": amount}
	}
	w, err := s.wallets.FindOneAndUpdate(ctx, filter, bson.M{
		"$inc": inc,
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if errors.Is(err, docstore.ErrNotFound) && typ == models.TxnDebit {
		if ok, _ := s.wallets.Exists(ctx, bson.M{"_id": walletID}); ok {
			return 0, 0, ErrInsufficientFunds
		}
	}
	if err != nil {
		return 0, 0, err
	}
	if typ == models.TxnDebit {
		return w.Balance + amount, w.Balance, nil
	}
	return w.Balance - amount, w.Balance, nil
}

// InsertTxn appends a ledger row.
func (s *Store) InsertTxn(ctx context.Context, t models.WalletTransaction) (models.WalletTransaction, error) {
	t.ID = primitive.NewObjectID()
	t.CreatedAt = time.Now().UTC()
	if t.Status == models.TxnCompleted && t.ProcessedAt == nil {
		at := t.CreatedAt
		t.ProcessedAt = &at
	}
	if _, err := s.txns.Insert(ctx, &t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.WalletTransaction{}, ErrDuplicateReference
		}
		return models.WalletTransaction{}, fmt.Errorf("insert wallet transaction: %w", err)
	}
	return t, nil
}

// TxnByReference loads a ledger row by its idempotency reference.
func (s *Store) TxnByReference(ctx context.Context, ref string) (*models.WalletTransaction, error) {
	return s.txns.FindOne(ctx, bson.M{"reference": ref})
}

// LedgerTotals are the completed credit and debit sums of one wallet.
type LedgerTotals struct {
	Credits float64 `bson:"credits"`
	Debits  float64 `bson:"debits"`
}

// Totals aggregates completed ledger rows of the tracked balance types.
func (s *Store) Totals(ctx context.Context, walletID primitive.ObjectID) (LedgerTotals, error) {
	sumIf := func(typ string) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$type", typ}}, "$amount", 0,
		}}}
	}
	cur, err := s.txns.Collection().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"wallet_id":    walletID,
			"status":       models.TxnCompleted,
			"balance_type": bson.M{"$in": models.TrackedBalanceTypes},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"credits": sumIf(models.TxnCredit),
			"debits":  sumIf(models.TxnDebit),
		}}},
	})
	if err != nil {
		return LedgerTotals{}, fmt.Errorf("wallet totals: %w", err)
	}
	var rows []LedgerTotals
	if err := cur.All(ctx, &rows); err != nil {
		return LedgerTotals{}, fmt.Errorf("wallet totals decode: %w", err)
	}
	if len(rows) == 0 {
		return LedgerTotals{}, nil
	}
	return rows[0], nil
}

// SetProjection overwrites the cached wallet fields.
func (s *Store) SetProjection(ctx context.Context, walletID primitive.ObjectID, balance, credited, debited float64) error {
	return s.wallets.UpdateByID(ctx, walletID, bson.M{"$set": bson.M{
		"balance":        balance,
		"total_credited": credited,
		"total_debited":  debited,
		"updated_at":     time.Now().UTC(),
	}})
}

// TxnFilter narrows ledger lists and exports.
type TxnFilter struct {
	UserID   *primitive.ObjectID
	Type     string
	Category string
	Status   string
	From, To *time.Time
}

func (f TxnFilter) bson() bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.Type != "" {
		q["type"] = f.Type
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.From != nil || f.To != nil {
		tq := bson.M{}
		if f.From != nil {
			tq["$gte"] = *f.From
		}
		if f.To != nil {
			tq["$lt"] = *f.To
		}
		q["created_at"] = tq
	}
	return q
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// ListTxns returns one page of ledger rows, newest first.
func (s *Store) ListTxns(ctx context.Context, f TxnFilter, p paging.Params) ([]models.WalletTransaction, int64, error) {
	return s.txns.FindPage(ctx, f.bson(), newestFirst, p)
}

// EachTxn streams matching ledger rows, newest first, to fn.
func (s *Store) EachTxn(ctx context.Context, f TxnFilter, fn func(models.WalletTransaction) error) error {
	cur, err := s.txns.Collection().Find(ctx, f.bson(), options.Find().SetSort(newestFirst))
	if err != nil {
		return fmt.Errorf("wallet transactions export: %w", err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var t models.WalletTransaction
		if err := cur.Decode(&t); err != nil {
			return fmt.Errorf("wallet transactions export decode: %w", err)
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return cur.Err()
}
