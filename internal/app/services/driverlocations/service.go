// Package locationsvc tracks where drivers are and who is available.
package locationsvc

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	driverlocationstore "github.com/dalemusser/ridehub/internal/app/store/driverlocations"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/geo"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// FreshFor is how recent a position must be for a driver to be matched.
const FreshFor = 2 * time.Minute

// DefaultNearbyLimit caps a nearby search.
const DefaultNearbyLimit = 10

var (
	ErrBadCoordinates = apierr.BadRequest("Invalid coordinates")
	ErrNoLocation     = apierr.BadRequest("Share your location before going online")
	ErrNotVerified    = apierr.Forbidden("Your documents must be approved before you can go online")
)

// SettingsSource supplies the default search radius.
type SettingsSource interface {
	Get(ctx context.Context) (models.PlatformSettings, error)
}

type Service struct {
	store    *driverlocationstore.Store
	settings SettingsSource
	log      *zap.Logger
	now      func() time.Time
}

func New(store *driverlocationstore.Store, settings SettingsSource, logger *zap.Logger) *Service {
	return &Service{store: store, settings: settings, log: logger, now: time.Now}
}

// UpdateLocation records the driver's current position.
func (s *Service) UpdateLocation(ctx context.Context, driverID primitive.ObjectID, lat, lng, heading float64) (*models.DriverLocation, error) {
	if !geo.ValidLatLng(lat, lng) {
		return nil, ErrBadCoordinates
	}
	return s.store.Update(ctx, driverID, models.NewGeoPoint(lat, lng), heading)
}

// SetAvailability toggles whether the driver receives ride requests.
// Unverified drivers may go offline but not online.
func (s *Service) SetAvailability(ctx context.Context, driver models.User, online bool) (*models.DriverLocation, error) {
	if online && !driver.DriverVerified {
		return nil, ErrNotVerified
	}
	loc, err := s.store.SetOnline(ctx, driver.ID, online)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrNoLocation
	}
	return loc, err
}

// SetOnRide marks the driver occupied or free.
func (s *Service) SetOnRide(ctx context.Context, driverID primitive.ObjectID, onRide bool) error {
	return s.store.SetOnRide(ctx, driverID, onRide)
}

// Get returns the driver's last known position.
func (s *Service) Get(ctx context.Context, driverID primitive.ObjectID) (*models.DriverLocation, error) {
	loc, err := s.store.Get(ctx, driverID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apierr.NotFound("Driver location not found")
	}
	return loc, err
}

// NearbyDriver is one search hit.
type NearbyDriver struct {
	DriverID   primitive.ObjectID `json:"driver_id"`
	Location   models.GeoPoint    `json:"location"`
	Heading    float64            `json:"heading,omitempty"`
	DistanceKm float64            `json:"distance_km"`
}

// FindNearby returns available drivers near the point, nearest first. A
// zero radius uses the platform setting.
func (s *Service) FindNearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]NearbyDriver, error) {
	if !geo.ValidLatLng(lat, lng) {
		return nil, ErrBadCoordinates
	}
	if radiusKm <= 0 {
		ps, err := s.settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		radiusKm = ps.SearchRadiusKm
	}
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}

	pt := models.NewGeoPoint(lat, lng)
	rows, err := s.store.Nearby(ctx, pt, radiusKm, s.now().UTC().Add(-FreshFor), int64(limit))
	if err != nil {
		return nil, err
	}
	out := make([]NearbyDriver, 0, len(rows))
	for _, r := range rows {
		out = append(out, NearbyDriver{
			DriverID:   r.DriverID,
			Location:   r.Location,
			Heading:    r.Heading,
			DistanceKm: geo.HaversineKm(pt, r.Location),
		})
	}
	return out, nil
}
