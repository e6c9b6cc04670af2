// Package subscriptionsvc manages driver plans, the per-day ride request
// allowance, and the daily expiration sweep.
package subscriptionsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	walletsvc "github.com/dalemusser/ridehub/internal/app/services/wallet"
	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	subscriptionstore "github.com/dalemusser/ridehub/internal/app/store/subscriptions"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/app/system/metrics"
	"github.com/dalemusser/ridehub/internal/app/system/normalize"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrPlanNotFound      = apierr.NotFound("Subscription plan not found")
	ErrPlanUnavailable   = apierr.BadRequest("This plan is not available")
	ErrDuplicatePlanCode = apierr.BadRequest("A plan with this code already exists")
	ErrFreePlanLocked    = apierr.BadRequest("The free plan cannot be deleted")
	ErrAlreadySubscribed = apierr.BadRequest("You already have an active subscription")
	ErrNothingToCancel   = apierr.BadRequest("You have no paid subscription to cancel")
	ErrDailyLimit        = apierr.BadRequest("Daily ride request limit reached for your plan")
)

// Wallet is the part of the wallet service subscriptions pay through.
type Wallet interface {
	Debit(ctx context.Context, e walletsvc.Entry) (models.WalletTransaction, error)
	Credit(ctx context.Context, e walletsvc.Entry) (models.WalletTransaction, error)
}

// SettingsSource supplies the reminder window.
type SettingsSource interface {
	Get(ctx context.Context) (models.PlatformSettings, error)
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

type Service struct {
	store    *subscriptionstore.Store
	wallet   Wallet
	settings SettingsSource
	events   Publisher
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

func New(store *subscriptionstore.Store, wallet Wallet, settings SettingsSource, pub Publisher, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{store: store, wallet: wallet, settings: settings, events: pub, metrics: m, log: logger, now: time.Now}
}

// SetClock replaces the time source. Tests use it to cross day boundaries.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

/*───────────────────────────────────────────────────────────────────────────*
| Plans                                                                      |
*───────────────────────────────────────────────────────────────────────────*/

// PlanInput is the admin body for creating or editing a plan.
type PlanInput struct {
	Code              string  `json:"code" validate:"omitempty,max=40"`
	Name              string  `json:"name" validate:"required,max=80"`
	Description       string  `json:"description" validate:"omitempty,max=500"`
	Price             float64 `json:"price" validate:"gte=0"`
	DurationDays      int     `json:"duration_days" validate:"gte=1,lte=3650"`
	DailyRideRequests int     `json:"daily_ride_requests" validate:"gte=0"`
	IsActive          *bool   `json:"is_active"`
}

func (in PlanInput) plan() models.SubscriptionPlan {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return models.SubscriptionPlan{
		Code:              normalize.Token(in.Code),
		Name:              strings.TrimSpace(in.Name),
		Description:       htmlsanitize.StripTags(in.Description),
		Price:             walletsvc.Round2(in.Price),
		DurationDays:      in.DurationDays,
		DailyRideRequests: in.DailyRideRequests,
		IsActive:          active,
	}
}

func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (models.SubscriptionPlan, error) {
	if err := jsonio.Validate(in); err != nil {
		return models.SubscriptionPlan{}, err
	}
	p := in.plan()
	if p.Code == "" {
		return models.SubscriptionPlan{}, apierr.BadRequest("code is required")
	}
	out, err := s.store.CreatePlan(ctx, p)
	if errors.Is(err, subscriptionstore.ErrDuplicatePlanCode) {
		return models.SubscriptionPlan{}, ErrDuplicatePlanCode
	}
	return out, err
}

func (s *Service) UpdatePlan(ctx context.Context, id primitive.ObjectID, in PlanInput) (*models.SubscriptionPlan, error) {
	if err := jsonio.Validate(in); err != nil {
		return nil, err
	}
	p := in.plan()
	p.ID = id
	out, err := s.store.UpdatePlan(ctx, p)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrPlanNotFound
	}
	return out, err
}

func (s *Service) DeletePlan(ctx context.Context, id primitive.ObjectID) error {
	p, err := s.store.PlanByID(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrPlanNotFound
	}
	if err != nil {
		return err
	}
	if p.Code == models.PlanFree {
		return ErrFreePlanLocked
	}
	return s.store.DeletePlan(ctx, id)
}

func (s *Service) ListPlans(ctx context.Context, activeOnly bool) ([]models.SubscriptionPlan, error) {
	out, err := s.store.ListPlans(ctx, activeOnly)
	if out == nil && err == nil {
		out = []models.SubscriptionPlan{}
	}
	return out, err
}

/*───────────────────────────────────────────────────────────────────────────*
| Driver subscriptions                                                       |
*───────────────────────────────────────────────────────────────────────────*/

// GetOrCreateCurrent returns the driver's active subscription, starting
// them on the free plan when they have none.
func (s *Service) GetOrCreateCurrent(ctx context.Context, driverID primitive.ObjectID) (*models.Subscription, error) {
	sub, err := s.store.Active(ctx, driverID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}

	limit := models.DefaultFreeDailyRideRequests
	name := "Free"
	var planID *primitive.ObjectID
	if p, err := s.store.PlanByCode(ctx, models.PlanFree); err == nil {
		limit, name, planID = p.DailyRideRequests, p.Name, &p.ID
	}
	created, err := s.store.CreateActive(ctx, models.Subscription{
		DriverID:              driverID,
		PlanID:                planID,
		PlanCode:              models.PlanFree,
		PlanName:              name,
		StartDate:             s.now().UTC(),
		DailyRideRequestLimit: limit,
	})
	if errors.Is(err, subscriptionstore.ErrActiveExists) {
		return s.store.Active(ctx, driverID)
	}
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Subscribe buys plan for the driver from their wallet. A free
// subscription is replaced; a paid one must end first. If the new
// subscription cannot be stored the payment is refunded.
func (s *Service) Subscribe(ctx context.Context, driverID, planID primitive.ObjectID) (*models.Subscription, error) {
	plan, err := s.store.PlanByID(ctx, planID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	if !plan.IsActive || plan.Code == models.PlanFree {
		return nil, ErrPlanUnavailable
	}

	current, err := s.store.Active(ctx, driverID)
	switch {
	case err == nil && !current.IsFree():
		return nil, ErrAlreadySubscribed
	case err != nil && !errors.Is(err, docstore.ErrNotFound):
		return nil, err
	}

	subID := primitive.NewObjectID()
	ref := "subscription:" + subID.Hex()
	if plan.Price > 0 {
		if _, err := s.wallet.Debit(ctx, walletsvc.Entry{
			UserID:      driverID,
			Category:    models.CategorySubscription,
			Amount:      plan.Price,
			Reference:   ref,
			Description: "Subscription: " + plan.Name,
		}); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	if current != nil {
		if _, err := s.store.End(ctx, current.ID, models.SubscriptionCancelled, now); err != nil {
			s.refund(ctx, driverID, plan, ref)
			return nil, err
		}
	}
	end := now.AddDate(0, 0, plan.DurationDays)
	created, err := s.store.CreateActive(ctx, models.Subscription{
		DriverID:              driverID,
		PlanID:                &plan.ID,
		PlanCode:              plan.Code,
		PlanName:              plan.Name,
		AmountPaid:            plan.Price,
		StartDate:             now,
		EndDate:               &end,
		DailyRideRequestLimit: plan.DailyRideRequests,
	})
	if err != nil {
		s.refund(ctx, driverID, plan, ref)
		if errors.Is(err, subscriptionstore.ErrActiveExists) {
			return nil, ErrAlreadySubscribed
		}
		return nil, err
	}
	s.log.Info("driver subscribed", zap.String("driver_id", driverID.Hex()), zap.String("plan", plan.Code))
	return &created, nil
}

func (s *Service) refund(ctx context.Context, driverID primitive.ObjectID, plan *models.SubscriptionPlan, ref string) {
	if plan.Price <= 0 {
		return
	}
	_, err := s.wallet.Credit(ctx, walletsvc.Entry{
		UserID:      driverID,
		Category:    models.CategoryRefund,
		Amount:      plan.Price,
		Reference:   "refund:" + ref,
		Description: "Refund: " + plan.Name,
	})
	if err != nil {
		s.log.Error("subscription refund failed", zap.String("driver_id", driverID.Hex()), zap.String("reference", ref), zap.Error(err))
	}
}

// Cancel ends the driver's paid subscription. No refund is made; the
// driver falls back to the free plan on next use.
func (s *Service) Cancel(ctx context.Context, driverID primitive.ObjectID) error {
	current, err := s.store.Active(ctx, driverID)
	if errors.Is(err, docstore.ErrNotFound) || (err == nil && current.IsFree()) {
		return ErrNothingToCancel
	}
	if err != nil {
		return err
	}
	ok, err := s.store.End(ctx, current.ID, models.SubscriptionCancelled, s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNothingToCancel
	}
	return nil
}

// History lists every subscription the driver has held.
func (s *Service) History(ctx context.Context, driverID primitive.ObjectID) ([]models.Subscription, error) {
	out, err := s.store.ListForDriver(ctx, driverID)
	if out == nil && err == nil {
		out = []models.Subscription{}
	}
	return out, err
}

/*───────────────────────────────────────────────────────────────────────────*
| Daily ride request allowance                                               |
*───────────────────────────────────────────────────────────────────────────*/

// CanAcceptRideRequest reports whether today's allowance has room.
func (s *Service) CanAcceptRideRequest(ctx context.Context, driverID primitive.ObjectID) (bool, error) {
	sub, err := s.GetOrCreateCurrent(ctx, driverID)
	if err != nil {
		return false, err
	}
	today := s.now().UTC().Format(subscriptionstore.DayLayout)
	return sub.DailyRideRequestLimit == 0 ||
		sub.LastRideRequestDate != today ||
		sub.DailyRideRequests < sub.DailyRideRequestLimit, nil
}

// IncrementDailyRideRequests consumes one request from today's allowance.
// The first increment on a new UTC day resets the counter to 1.
func (s *Service) IncrementDailyRideRequests(ctx context.Context, driverID primitive.ObjectID) (*models.Subscription, error) {
	sub, err := s.GetOrCreateCurrent(ctx, driverID)
	if err != nil {
		return nil, err
	}
	out, err := s.store.IncrementDailyRideRequests(ctx, sub.ID, s.now().UTC())
	if errors.Is(err, subscriptionstore.ErrDailyLimitReached) {
		return nil, ErrDailyLimit
	}
	return out, err
}

// ReleaseDailyRideRequest returns one request to today's allowance.
func (s *Service) ReleaseDailyRideRequest(ctx context.Context, subID primitive.ObjectID) error {
	return s.store.ReleaseDailyRideRequest(ctx, subID, s.now())
}

/*───────────────────────────────────────────────────────────────────────────*
| Expiration sweep                                                           |
*───────────────────────────────────────────────────────────────────────────*/

// SweepResult counts what one sweep did.
type SweepResult struct {
	Expiring int `json:"expiring"`
	Expired  int `json:"expired"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// RunExpirationSweep notifies drivers whose subscription ends within the
// reminder window, then expires every active subscription past its end
// date. Expiry is a conditional update, so running twice expires once.
func (s *Service) RunExpirationSweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now().UTC()

	ps, err := s.settings.Get(ctx)
	if err != nil {
		return res, fmt.Errorf("subscription sweep settings: %w", err)
	}

	if ps.ExpiryReminderDays > 0 {
		soon, err := s.store.ExpiringBetween(ctx, now, now.AddDate(0, 0, ps.ExpiryReminderDays))
		if err != nil {
			return res, fmt.Errorf("subscription sweep expiring: %w", err)
		}
		for _, sub := range soon {
			s.publish(ctx, events.SubscriptionExpiring, sub)
			s.metrics.SweepItem("subscription", "expiring", "notified")
			res.Expiring++
		}
	}

	due, err := s.store.ExpiredAt(ctx, now)
	if err != nil {
		return res, fmt.Errorf("subscription sweep expired: %w", err)
	}
	for _, sub := range due {
		changed, err := s.store.End(ctx, sub.ID, models.SubscriptionExpired, now)
		switch {
		case err != nil:
			res.Errors++
			s.metrics.SweepItem("subscription", "expired", "error")
			s.log.Error("expire subscription failed", zap.String("subscription_id", sub.ID.Hex()), zap.Error(err))
		case !changed:
			res.Skipped++
			s.metrics.SweepItem("subscription", "expired", "skipped")
		default:
			res.Expired++
			s.metrics.SweepItem("subscription", "expired", "expired")
			s.publish(ctx, events.SubscriptionExpired, sub)
		}
	}

	s.log.Info("subscription sweep finished",
		zap.Int("expiring", res.Expiring), zap.Int("expired", res.Expired),
		zap.Int("skipped", res.Skipped), zap.Int("errors", res.Errors))
	return res, nil
}

func (s *Service) publish(ctx context.Context, topic string, sub models.Subscription) {
	if s.events == nil {
		return
	}
	var end time.Time
	if sub.EndDate != nil {
		end = *sub.EndDate
	}
	s.events.Publish(ctx, events.ExpiryEvent{
		Name:     topic,
		DriverID: sub.DriverID,
		ItemID:   sub.ID,
		Label:    sub.PlanName + " subscription",
		EndDate:  end,
	})
}
