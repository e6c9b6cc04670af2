// internal/domain/models/wallet.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ledger entry direction.
const (
	TxnCredit = "credit"
	TxnDebit  = "debit"
)

// Ledger entry status. Only completed entries count toward a balance.
const (
	TxnPending   = "pending"
	TxnCompleted = "completed"
	TxnFailed    = "failed"
	TxnCancelled = "cancelled"
)

// Balance types. Both count toward the spendable balance.
const (
	BalanceWallet   = "wallet"   // top-ups and payments
	BalanceEarnings = "earnings" // driver ride income
)

// TrackedBalanceTypes are summed when computing a wallet balance.
var TrackedBalanceTypes = []string{BalanceWallet, BalanceEarnings}

// Ledger categories.
const (
	CategoryDeposit         = "deposit"
	CategoryRidePayment     = "ride_payment"
	CategoryRideEarning     = "ride_earning"
	CategoryCommission      = "commission"
	CategoryCancellationFee = "cancellation_fee"
	CategoryWithdrawal      = "withdrawal"
	CategorySubscription    = "subscription"
	CategoryEvp             = "evp"
	CategoryRefund          = "refund"
	CategoryAdjustment      = "adjustment"
)

// Wallet holds the cached balance for one user. The transactions ledger is
// authoritative; Balance is rewritten in the same write as each ledger row.
type Wallet struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	Balance       float64            `bson:"balance" json:"balance"`
	TotalCredited float64            `bson:"total_credited" json:"total_credited"`
	TotalDebited  float64            `bson:"total_debited" json:"total_debited"`
	Currency      string             `bson:"currency" json:"currency"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// WalletTransaction is one append-only ledger row.
type WalletTransaction struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	WalletID      primitive.ObjectID  `bson:"wallet_id" json:"wallet_id"`
	UserID        primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Type          string              `bson:"type" json:"type"` // credit | debit
	Category      string              `bson:"category" json:"category"`
	BalanceType   string              `bson:"balance_type" json:"balance_type"`
	Amount        float64             `bson:"amount" json:"amount"`
	BalanceBefore float64             `bson:"balance_before" json:"balance_before"`
	BalanceAfter  float64             `bson:"balance_after" json:"balance_after"`
	Status        string              `bson:"status" json:"status"`
	Reference     string              `bson:"reference" json:"reference"`
	RideID        *primitive.ObjectID `bson:"ride_id,omitempty" json:"ride_id,omitempty"`
	Description   string              `bson:"description,omitempty" json:"description,omitempty"`
	ProcessedAt   *time.Time          `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
}

// BankAccount is a payout destination for driver withdrawals.
type BankAccount struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DriverID      primitive.ObjectID `bson:"driver_id" json:"driver_id"`
	BankName      string             `bson:"bank_name" json:"bank_name"`
	AccountHolder string             `bson:"account_holder" json:"account_holder"`
	AccountNumber string             `bson:"account_number" json:"-"`
	Last4         string             `bson:"last4" json:"last4"`
	IBAN          string             `bson:"iban,omitempty" json:"-"`
	IsDefault     bool               `bson:"is_default" json:"is_default"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// Withdrawal request statuses.
const (
	WithdrawalPending = "pending"
	// WithdrawalProcessing marks a request an admin has claimed for approval.
	WithdrawalProcessing = "processing"
	WithdrawalApproved   = "approved"
	WithdrawalRejected   = "rejected"
)

// WithdrawalRequest asks an admin to pay out part of a driver's balance.
type WithdrawalRequest struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	DriverID        primitive.ObjectID  `bson:"driver_id" json:"driver_id"`
	BankAccountID   primitive.ObjectID  `bson:"bank_account_id" json:"bank_account_id"`
	Amount          float64             `bson:"amount" json:"amount"`
	Status          string              `bson:"status" json:"status"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	TransactionID   *primitive.ObjectID `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	ClaimedBy       *primitive.ObjectID `bson:"claimed_by,omitempty" json:"-"`
	ClaimedAt       *time.Time          `bson:"claimed_at,omitempty" json:"-"`
	ReviewedBy      *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}
