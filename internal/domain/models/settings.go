// internal/domain/models/settings.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlatformSettingsID is the _id of the single platform settings document.
const PlatformSettingsID = "platform"

// PlatformSettings holds platform-wide configuration that admins can edit.
// Exactly one document exists; it is created at deploy time by the schema step.
type PlatformSettings struct {
	ID string `bson:"_id" json:"-"`

	Currency          string  `bson:"currency" json:"currency"`
	CommissionPercent float64 `bson:"commission_percent" json:"commission_percent"`

	// Fare formula: max(MinimumFare, BaseFare + PerKm*km + PerMinute*min).
	BaseFare        float64 `bson:"base_fare" json:"base_fare"`
	PerKmRate       float64 `bson:"per_km_rate" json:"per_km_rate"`
	PerMinuteRate   float64 `bson:"per_minute_rate" json:"per_minute_rate"`
	MinimumFare     float64 `bson:"minimum_fare" json:"minimum_fare"`
	CancellationFee float64 `bson:"cancellation_fee" json:"cancellation_fee"`
	AverageSpeedKmh float64 `bson:"average_speed_kmh" json:"average_speed_kmh"`

	SearchRadiusKm float64 `bson:"search_radius_km" json:"search_radius_km"`

	EvpPrice           float64 `bson:"evp_price" json:"evp_price"`
	EvpValidityDays    int     `bson:"evp_validity_days" json:"evp_validity_days"`
	ExpiryReminderDays int     `bson:"expiry_reminder_days" json:"expiry_reminder_days"`

	MinWithdrawalAmount float64 `bson:"min_withdrawal_amount" json:"min_withdrawal_amount"`

	SupportEmail string `bson:"support_email,omitempty" json:"support_email,omitempty"`
	SupportPhone string `bson:"support_phone,omitempty" json:"support_phone,omitempty"`
	TermsHTML    string `bson:"terms_html,omitempty" json:"terms_html,omitempty"`
	PrivacyHTML  string `bson:"privacy_html,omitempty" json:"privacy_html,omitempty"`

	UpdatedAt     *time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	UpdatedByID   *primitive.ObjectID `bson:"updated_by_id,omitempty" json:"updated_by_id,omitempty"`
	UpdatedByName string              `bson:"updated_by_name,omitempty" json:"updated_by_name,omitempty"`
}

// DefaultPlatformSettings returns the values written when the settings
// document is first initialized.
func DefaultPlatformSettings() PlatformSettings {
	return PlatformSettings{
		ID:                  PlatformSettingsID,
		Currency:            "USD",
		CommissionPercent:   15,
		BaseFare:            2.5,
		PerKmRate:           1.2,
		PerMinuteRate:       0.25,
		MinimumFare:         5,
		CancellationFee:     3,
		AverageSpeedKmh:     30,
		SearchRadiusKm:      5,
		EvpPrice:            25,
		EvpValidityDays:     30,
		ExpiryReminderDays:  3,
		MinWithdrawalAmount: 10,
	}
}
