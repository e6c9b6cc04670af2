// Package evpsvc issues electronic vehicle permits to drivers, either
// bought from the wallet or granted by an admin, and expires them.
package evpsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	walletsvc "github.com/dalemusser/ridehub/internal/app/services/wallet"
	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	evpstore "github.com/dalemusser/ridehub/internal/app/store/evps"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ridehub/internal/app/system/metrics"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Permit sources.
const (
	SourcePurchase = "purchase"
	SourceAdmin    = "admin"
)

var (
	ErrActiveExists   = apierr.BadRequest("You already have an active EVP")
	ErrNotFound       = apierr.NotFound("EVP not found")
	ErrNotActive      = apierr.BadRequest("EVP is not active")
	ErrDriverNotFound = apierr.NotFound("Driver not found")
	ErrNotForSale     = apierr.BadRequest("EVP purchase is not available")
)

// Wallet is the part of the wallet service permits are paid through.
type Wallet interface {
	Debit(ctx context.Context, e walletsvc.Entry) (models.WalletTransaction, error)
	Credit(ctx context.Context, e walletsvc.Entry) (models.WalletTransaction, error)
}

// SettingsSource supplies price, validity and the reminder window.
type SettingsSource interface {
	Get(ctx context.Context) (models.PlatformSettings, error)
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

type Service struct {
	store    *evpstore.Store
	users    *userstore.Store
	wallet   Wallet
	settings SettingsSource
	events   Publisher
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

func New(store *evpstore.Store, users *userstore.Store, wallet Wallet, settings SettingsSource, pub Publisher, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{store: store, users: users, wallet: wallet, settings: settings, events: pub, metrics: m, log: logger, now: time.Now}
}

// permitNumber builds a human-readable, unique permit number.
func permitNumber(now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
	return "EVP-" + now.Format("20060102") + "-" + id
}

// Purchase buys a permit for the driver at the configured price.
func (s *Service) Purchase(ctx context.Context, driverID primitive.ObjectID) (models.Evp, error) {
	ps, err := s.settings.Get(ctx)
	if err != nil {
		return models.Evp{}, err
	}
	if ps.EvpValidityDays <= 0 {
		return models.Evp{}, ErrNotForSale
	}
	now := s.now().UTC()
	if _, err := s.store.Current(ctx, driverID, now); err == nil {
		return models.Evp{}, ErrActiveExists
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return models.Evp{}, err
	}

	number := permitNumber(now)
	ref := "evp:" + number
	price := walletsvc.Round2(ps.EvpPrice)
	if price > 0 {
		if _, err := s.wallet.Debit(ctx, walletsvc.Entry{
			UserID:      driverID,
			Category:    models.CategoryEvp,
			Amount:      price,
			Reference:   ref,
			Description: "EVP " + number,
		}); err != nil {
			return models.Evp{}, err
		}
	}

	evp, err := s.store.Create(ctx, models.Evp{
		DriverID:     driverID,
		PermitNumber: number,
		Price:        price,
		Source:       SourcePurchase,
		StartDate:    now,
		EndDate:      now.AddDate(0, 0, ps.EvpValidityDays),
	})
	if err != nil {
		if price > 0 {
			if _, rerr := s.wallet.Credit(ctx, walletsvc.Entry{
				UserID:      driverID,
				Category:    models.CategoryRefund,
				Amount:      price,
				Reference:   "refund:" + ref,
				Description: "Refund: EVP " + number,
			}); rerr != nil {
				s.log.Error("evp refund failed", zap.String("driver_id", driverID.Hex()), zap.String("reference", ref), zap.Error(rerr))
			}
		}
		return models.Evp{}, err
	}
	s.log.Info("evp purchased", zap.String("driver_id", driverID.Hex()), zap.String("permit", number))
	return evp, nil
}

// IssueInput is the admin body for granting a permit.
type IssueInput struct {
	DriverID     string `json:"driver_id" validate:"required,len=24,hexadecimal"`
	ValidityDays int    `json:"validity_days" validate:"omitempty,gte=1,lte=3650"`
}

// Issue grants a free permit. Validity defaults to the configured period.
func (s *Service) Issue(ctx context.Context, driverID primitive.ObjectID, validityDays int, issuer primitive.ObjectID) (models.Evp, error) {
	driver, err := s.users.FindByID(ctx, driverID)
	if errors.Is(err, docstore.ErrNotFound) || (err == nil && driver.Role != models.RoleDriver) {
		return models.Evp{}, ErrDriverNotFound
	}
	if err != nil {
		return models.Evp{}, err
	}
	now := s.now().UTC()
	if _, err := s.store.Current(ctx, driverID, now); err == nil {
		return models.Evp{}, apierr.BadRequest("Driver already has an active EVP")
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return models.Evp{}, err
	}
	if validityDays <= 0 {
		ps, err := s.settings.Get(ctx)
		if err != nil {
			return models.Evp{}, err
		}
		validityDays = ps.EvpValidityDays
	}
	return s.store.Create(ctx, models.Evp{
		DriverID:     driverID,
		PermitNumber: permitNumber(now),
		Source:       SourceAdmin,
		StartDate:    now,
		EndDate:      now.AddDate(0, 0, validityDays),
		IssuedBy:     &issuer,
	})
}

// GetActive returns the driver's current permit.
func (s *Service) GetActive(ctx context.Context, driverID primitive.ObjectID) (*models.Evp, error) {
	e, err := s.store.Current(ctx, driverID, s.now().UTC())
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	return e, err
}

// List returns one page of permits.
func (s *Service) List(ctx context.Context, f evpstore.ListFilter, p paging.Params) (paging.Page[models.Evp], error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return paging.Page[models.Evp]{}, err
	}
	return paging.NewPage(items, total, p), nil
}

// Revoke ends an active permit early. No refund is made.
func (s *Service) Revoke(ctx context.Context, id primitive.ObjectID, reason string) (*models.Evp, error) {
	e, err := s.store.Revoke(ctx, id, htmlsanitize.StripTags(reason))
	switch {
	case errors.Is(err, evpstore.ErrNotActive):
		return nil, ErrNotActive
	case errors.Is(err, docstore.ErrNotFound):
		return nil, ErrNotFound
	}
	return e, err
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Expiring int `json:"expiring"`
	Expired  int `json:"expired"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// RunExpirationSweep reminds holders of permits ending soon and expires
// permits past their end date. A permit already moved out of active is
// skipped, so repeated runs are harmless.
func (s *Service) RunExpirationSweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now().UTC()

	ps, err := s.settings.Get(ctx)
	if err != nil {
		return res, fmt.Errorf("evp sweep settings: %w", err)
	}
	if ps.ExpiryReminderDays > 0 {
		soon, err := s.store.ExpiringBetween(ctx, now, now.AddDate(0, 0, ps.ExpiryReminderDays))
		if err != nil {
			return res, fmt.Errorf("evp sweep expiring: %w", err)
		}
		for _, e := range soon {
			s.publish(ctx, events.EvpExpiring, e)
			s.metrics.SweepItem("evp", "expiring", "notified")
			res.Expiring++
		}
	}

	due, err := s.store.ExpiredAt(ctx, now)
	if err != nil {
		return res, fmt.Errorf("evp sweep expired: %w", err)
	}
	for _, e := range due {
		changed, err := s.store.MarkExpired(ctx, e.ID, now)
		switch {
		case err != nil:
			res.Errors++
			s.metrics.SweepItem("evp", "expired", "error")
			s.log.Error("expire evp failed", zap.String("evp_id", e.ID.Hex()), zap.Error(err))
		case !changed:
			res.Skipped++
			s.metrics.SweepItem("evp", "expired", "skipped")
		default:
			res.Expired++
			s.metrics.SweepItem("evp", "expired", "expired")
			s.publish(ctx, events.EvpExpired, e)
		}
	}

	s.log.Info("evp sweep finished",
		zap.Int("expiring", res.Expiring), zap.Int("expired", res.Expired),
		zap.Int("skipped", res.Skipped), zap.Int("errors", res.Errors))
	return res, nil
}

func (s *Service) publish(ctx context.Context, topic string, e models.Evp) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, events.ExpiryEvent{
		Name:     topic,
		DriverID: e.DriverID,
		ItemID:   e.ID,
		Label:    "EVP " + e.PermitNumber,
		EndDate:  e.EndDate,
	})
}
