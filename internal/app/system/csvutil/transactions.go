// Package csvutil writes ledger exports as CSV.
package csvutil

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/ridehub/internal/domain/models"
)

// ErrTooManyRows is returned once MaxExportRows rows have been written.
var ErrTooManyRows = errors.New("export exceeds row limit")

// TransactionHeader is the first line of every export.
var TransactionHeader = []string{
	"id", "created_at", "user_id", "wallet_id", "type", "category",
	"balance_type", "amount", "balance_before", "balance_after",
	"status", "reference", "ride_id", "description",
}

// TransactionWriter streams ledger rows to a CSV file.
type TransactionWriter struct {
	w    *csv.Writer
	rows int
	max  int
}

// NewTransactionWriter writes the header and returns the writer.
func NewTransactionWriter(out io.Writer) (*TransactionWriter, error) {
	tw := &TransactionWriter{w: csv.NewWriter(out), max: MaxExportRows}
	if err := tw.w.Write(TransactionHeader); err != nil {
		return nil, err
	}
	return tw, nil
}

// Write appends one row.
func (tw *TransactionWriter) Write(t models.WalletTransaction) error {
	if tw.rows >= tw.max {
		return ErrTooManyRows
	}
	rideID := ""
	if t.RideID != nil {
		rideID = t.RideID.Hex()
	}
	tw.rows++
	return tw.w.Write([]string{
		t.ID.Hex(),
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.UserID.Hex(),
		t.WalletID.Hex(),
		t.Type,
		t.Category,
		t.BalanceType,
		money(t.Amount),
		money(t.BalanceBefore),
		money(t.BalanceAfter),
		t.Status,
		safeCell(t.Reference),
		rideID,
		safeCell(t.Description),
	})
}

// Rows is the number of data rows written.
func (tw *TransactionWriter) Rows() int { return tw.rows }

// Flush writes buffered rows and reports any write error.
func (tw *TransactionWriter) Flush() error {
	tw.w.Flush()
	return tw.w.Error()
}

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// safeCell stops spreadsheet apps from evaluating free text as a formula.
func safeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return strings.TrimSpace(s)
}
