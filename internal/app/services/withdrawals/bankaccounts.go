package withdrawalsvc

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountInput is the body for adding a payout account.
type AccountInput struct {
	BankName      string `json:"bank_name" validate:"required,max=100"`
	AccountHolder string `json:"account_holder" validate:"required,max=100"`
	AccountNumber string `json:"account_number" validate:"required"`
	IBAN          string `json:"iban" validate:"omitempty,max=34"`
}

// AccountUpdate is the body for editing a payout account.
type AccountUpdate struct {
	BankName      string `json:"bank_name" validate:"required,max=100"`
	AccountHolder string `json:"account_holder" validate:"required,max=100"`
}

// compactAccount strips spaces and dashes and uppercases letters.
func compactAccount(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ' ' || r == '-':
		case unicode.IsDigit(r) || unicode.IsLetter(r):
			b.WriteRune(unicode.ToUpper(r))
		default:
			return "", false
		}
	}
	out := b.String()
	return out, len(out) >= 6 && len(out) <= 34
}

// AddAccount registers a payout account. The first one becomes the default.
func (s *Service) AddAccount(ctx context.Context, driverID primitive.ObjectID, in AccountInput) (models.BankAccount, error) {
	number, ok := compactAccount(in.AccountNumber)
	if !ok {
		return models.BankAccount{}, ErrInvalidAccountNum
	}
	iban := ""
	if in.IBAN != "" {
		if iban, ok = compactAccount(in.IBAN); !ok {
			return models.BankAccount{}, ErrInvalidAccountNum
		}
	}
	return s.accounts.Create(ctx, models.BankAccount{
		DriverID:      driverID,
		BankName:      htmlsanitize.StripTags(strings.TrimSpace(in.BankName)),
		AccountHolder: htmlsanitize.StripTags(strings.TrimSpace(in.AccountHolder)),
		AccountNumber: number,
		Last4:         number[len(number)-4:],
		IBAN:          iban,
	})
}

func (s *Service) ListAccounts(ctx context.Context, driverID primitive.ObjectID) ([]models.BankAccount, error) {
	out, err := s.accounts.List(ctx, driverID)
	if out == nil && err == nil {
		out = []models.BankAccount{}
	}
	return out, err
}

func (s *Service) UpdateAccount(ctx context.Context, driverID, id primitive.ObjectID, in AccountUpdate) (*models.BankAccount, error) {
	a, err := s.accounts.Update(ctx, driverID, id,
		htmlsanitize.StripTags(strings.TrimSpace(in.BankName)),
		htmlsanitize.StripTags(strings.TrimSpace(in.AccountHolder)))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrBankNotFound
	}
	return a, err
}

func (s *Service) DeleteAccount(ctx context.Context, driverID, id primitive.ObjectID) error {
	err := s.accounts.Delete(ctx, driverID, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrBankNotFound
	}
	return err
}

func (s *Service) SetDefaultAccount(ctx context.Context, driverID, id primitive.ObjectID) error {
	err := s.accounts.SetDefault(ctx, driverID, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrBankNotFound
	}
	return err
}
