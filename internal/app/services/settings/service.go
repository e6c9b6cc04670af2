// Package settingssvc reads and edits the platform settings document.
package settingssvc

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	settingsstore "github.com/dalemusser/ridehub/internal/app/store/settings"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ridehub/internal/app/system/jsonio"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultCacheTTL bounds how stale another instance's edit can look.
const DefaultCacheTTL = 30 * time.Second

// Service caches the settings document in process.
type Service struct {
	store *settingsstore.Store
	log   *zap.Logger
	ttl   time.Duration
	now   func() time.Time

	mu       sync.RWMutex
	cached   *models.PlatformSettings
	loadedAt time.Time
}

func New(store *settingsstore.Store, logger *zap.Logger) *Service {
	return &Service{store: store, log: logger, ttl: DefaultCacheTTL, now: time.Now}
}

// Init writes defaults if the document does not exist yet.
func (s *Service) Init(ctx context.Context) error {
	return s.store.Init(ctx)
}

// Get returns the current settings, from cache when fresh.
func (s *Service) Get(ctx context.Context) (models.PlatformSettings, error) {
	s.mu.RLock()
	if s.cached != nil && s.now().Sub(s.loadedAt) < s.ttl {
		ps := *s.cached
		s.mu.RUnlock()
		return ps, nil
	}
	s.mu.RUnlock()

	ps, err := s.store.Get(ctx)
	if err != nil {
		return models.PlatformSettings{}, err
	}
	s.mu.Lock()
	s.cached = &ps
	s.loadedAt = s.now()
	s.mu.Unlock()
	return ps, nil
}

// Invalidate drops the cached copy.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Update is a partial edit; nil fields are left unchanged.
type Update struct {
	Currency            *string  `json:"currency" validate:"omitempty,len=3"`
	CommissionPercent   *float64 `json:"commission_percent" validate:"omitempty,gte=0,lte=100"`
	BaseFare            *float64 `json:"base_fare" validate:"omitempty,gte=0"`
	PerKmRate           *float64 `json:"per_km_rate" validate:"omitempty,gte=0"`
	PerMinuteRate       *float64 `json:"per_minute_rate" validate:"omitempty,gte=0"`
	MinimumFare         *float64 `json:"minimum_fare" validate:"omitempty,gte=0"`
	CancellationFee     *float64 `json:"cancellation_fee" validate:"omitempty,gte=0"`
	AverageSpeedKmh     *float64 `json:"average_speed_kmh" validate:"omitempty,gt=0"`
	SearchRadiusKm      *float64 `json:"search_radius_km" validate:"omitempty,gt=0,lte=100"`
	EvpPrice            *float64 `json:"evp_price" validate:"omitempty,gte=0"`
	EvpValidityDays     *int     `json:"evp_validity_days" validate:"omitempty,gte=1,lte=3650"`
	ExpiryReminderDays  *int     `json:"expiry_reminder_days" validate:"omitempty,gte=0,lte=60"`
	MinWithdrawalAmount *float64 `json:"min_withdrawal_amount" validate:"omitempty,gte=0"`
	SupportEmail        *string  `json:"support_email" validate:"omitempty,email"`
	SupportPhone        *string  `json:"support_phone" validate:"omitempty,max=32"`
	TermsHTML           *string  `json:"terms_html" validate:"omitempty,max=200000"`
	PrivacyHTML         *string  `json:"privacy_html" validate:"omitempty,max=200000"`
}

// Fields returns the json names of the fields u sets.
func (u Update) Fields() []string {
	var out []string
	v := reflect.ValueOf(u)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if v.Field(i).IsNil() {
			continue
		}
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		out = append(out, name)
	}
	return out
}

// Apply copies the set fields onto ps. Legal pages are sanitized.
func (u Update) Apply(ps *models.PlatformSettings) {
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&ps.CommissionPercent, u.CommissionPercent)
	setF(&ps.BaseFare, u.BaseFare)
	setF(&ps.PerKmRate, u.PerKmRate)
	setF(&ps.PerMinuteRate, u.PerMinuteRate)
	setF(&ps.MinimumFare, u.MinimumFare)
	setF(&ps.CancellationFee, u.CancellationFee)
	setF(&ps.AverageSpeedKmh, u.AverageSpeedKmh)
	setF(&ps.SearchRadiusKm, u.SearchRadiusKm)
	setF(&ps.EvpPrice, u.EvpPrice)
	setF(&ps.MinWithdrawalAmount, u.MinWithdrawalAmount)
	if u.Currency != nil {
		ps.Currency = strings.ToUpper(*u.Currency)
	}
	if u.EvpValidityDays != nil {
		ps.EvpValidityDays = *u.EvpValidityDays
	}
	if u.ExpiryReminderDays != nil {
		ps.ExpiryReminderDays = *u.ExpiryReminderDays
	}
	if u.SupportEmail != nil {
		ps.SupportEmail = strings.TrimSpace(*u.SupportEmail)
	}
	if u.SupportPhone != nil {
		ps.SupportPhone = strings.TrimSpace(*u.SupportPhone)
	}
	if u.TermsHTML != nil {
		ps.TermsHTML = htmlsanitize.Sanitize(*u.TermsHTML)
	}
	if u.PrivacyHTML != nil {
		ps.PrivacyHTML = htmlsanitize.Sanitize(*u.PrivacyHTML)
	}
}

// Update applies u and records who made the change.
func (s *Service) Update(ctx context.Context, u Update, actor models.User) (models.PlatformSettings, error) {
	if err := jsonio.Validate(u); err != nil {
		return models.PlatformSettings{}, err
	}
	ps, err := s.store.Get(ctx)
	if err != nil {
		return models.PlatformSettings{}, err
	}
	u.Apply(&ps)
	if ps.MinimumFare < ps.BaseFare {
		return models.PlatformSettings{}, apierr.BadRequest("minimum_fare must be at least base_fare")
	}

	now := time.Now().UTC()
	ps.UpdatedAt = &now
	ps.UpdatedByID = &actor.ID
	ps.UpdatedByName = actor.FullName

	saved, err := s.store.Save(ctx, ps)
	if err != nil {
		return models.PlatformSettings{}, err
	}
	s.Invalidate()
	s.log.Info("platform settings updated", zap.String("by", actor.ID.Hex()))
	return saved, nil
}
