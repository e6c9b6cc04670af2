// Package ratingsvc handles post-ride ratings in both directions:
// passengers rating drivers and drivers rating passengers.
package ratingsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	notificationsvc "github.com/dalemusser/ridehub/internal/app/services/notifications"
	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	ratingstore "github.com/dalemusser/ridehub/internal/app/store/ratings"
	ridestore "github.com/dalemusser/ridehub/internal/app/store/rides"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ridehub/internal/app/system/metrics"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrRideNotFound = apierr.NotFound("Completed ride not found")
	ErrAlreadyRated = apierr.BadRequest("You have already rated this ride")
	ErrNoDriver     = apierr.BadRequest("No driver was assigned to this ride")
)

// Notifier tells the rated party about a new rating.
type Notifier interface {
	Notify(ctx context.Context, n notificationsvc.Notice) (models.Notification, error)
}

type Service struct {
	rides   *ridestore.Store
	ratings *ratingstore.Store
	users   *userstore.Store
	notify  Notifier
	metrics *metrics.Metrics
	log     *zap.Logger
}

func New(rides *ridestore.Store, ratings *ratingstore.Store, users *userstore.Store, notify Notifier, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{rides: rides, ratings: ratings, users: users, notify: notify, metrics: m, log: logger}
}

// Input is the rating body.
type Input struct {
	Stars   int      `json:"stars" validate:"required,min=1,max=5"`
	Comment string   `json:"comment" validate:"omitempty,max=500"`
	Tags    []string `json:"tags" validate:"omitempty,max=5,dive,max=30"`
}

// RateDriver records a passenger's rating of the driver of a completed ride.
func (s *Service) RateDriver(ctx context.Context, passengerID, rideID primitive.ObjectID, in Input) (models.Rating, error) {
	ride, err := s.completedRide(ctx, rideID, bson.M{"passenger_id": passengerID})
	if err != nil {
		return models.Rating{}, err
	}
	if ride.DriverID == nil {
		return models.Rating{}, ErrNoDriver
	}
	return s.rate(ctx, ride, passengerID, *ride.DriverID, models.RaterPassenger, "passenger_rated", in)
}

// RatePassenger records a driver's rating of the passenger of a completed ride.
func (s *Service) RatePassenger(ctx context.Context, driverID, rideID primitive.ObjectID, in Input) (models.Rating, error) {
	ride, err := s.completedRide(ctx, rideID, bson.M{"driver_id": driverID})
	if err != nil {
		return models.Rating{}, err
	}
	return s.rate(ctx, ride, driverID, ride.PassengerID, models.RaterDriver, "driver_rated", in)
}

// completedRide loads the ride only if it is completed and owned by the
// caller. Every miss reports the same NotFound.
func (s *Service) completedRide(ctx context.Context, rideID primitive.ObjectID, owner bson.M) (*models.Ride, error) {
	filter := bson.M{"_id": rideID, "status": models.RideCompleted}
	for k, v := range owner {
		filter[k] = v
	}
	ride, err := s.rides.FindOne(ctx, filter)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrRideNotFound
	}
	return ride, err
}

func (s *Service) rate(ctx context.Context, ride *models.Ride, raterID, ratedID primitive.ObjectID, role, flag string, in Input) (models.Rating, error) {
	if in.Stars < 1 || in.Stars > 5 {
		return models.Rating{}, apierr.BadRequest("stars must be between 1 and 5")
	}
	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		if t = strings.TrimSpace(htmlsanitize.StripTags(t)); t != "" {
			tags = append(tags, t)
		}
	}

	r, err := s.ratings.Create(ctx, models.Rating{
		RideID:    ride.ID,
		RaterID:   raterID,
		RatedID:   ratedID,
		RaterRole: role,
		Stars:     in.Stars,
		Comment:   strings.TrimSpace(htmlsanitize.StripTags(in.Comment)),
		Tags:      tags,
	})
	if errors.Is(err, ratingstore.ErrAlreadyRated) {
		return models.Rating{}, ErrAlreadyRated
	}
	if err != nil {
		return models.Rating{}, err
	}
	s.metrics.RatingSubmitted(role)

	if err := s.rides.MarkRated(ctx, ride.ID, flag); err != nil {
		s.log.Warn("mark ride rated failed", zap.String("ride_id", ride.ID.Hex()), zap.Error(err))
	}
	if _, err := s.RecomputeAverage(ctx, ratedID); err != nil {
		s.log.Warn("recompute rating average failed", zap.String("user_id", ratedID.Hex()), zap.Error(err))
	}
	if s.notify != nil {
		if _, err := s.notify.Notify(ctx, notificationsvc.Notice{
			UserID: ratedID,
			Type:   notificationsvc.TypeRating,
			Title:  "New rating",
			Body:   fmt.Sprintf("You received a %d-star rating.", in.Stars),
			Data:   map[string]string{"ride_id": ride.ID.Hex()},
		}); err != nil {
			s.log.Warn("rating notification failed", zap.Error(err))
		}
	}
	return r, nil
}

// RecomputeAverage aggregates every rating the user has received and
// writes the average and count onto the user.
func (s *Service) RecomputeAverage(ctx context.Context, userID primitive.ObjectID) (models.RatingSummary, error) {
	sum, err := s.ratings.Summary(ctx, userID)
	if err != nil {
		return models.RatingSummary{}, err
	}
	if err := s.users.SetRating(ctx, userID, sum.Average, sum.Count); err != nil {
		return models.RatingSummary{}, err
	}
	return sum, nil
}

// Summary returns average, count and histogram for the user.
func (s *Service) Summary(ctx context.Context, userID primitive.ObjectID) (models.RatingSummary, error) {
	return s.ratings.Summary(ctx, userID)
}

// ListReceived pages through ratings given to userID.
func (s *Service) ListReceived(ctx context.Context, userID primitive.ObjectID, p paging.Params) (paging.Page[models.Rating], error) {
	return s.List(ctx, ratingstore.ListFilter{RatedID: &userID}, p)
}

// ListGiven pages through ratings userID gave.
func (s *Service) ListGiven(ctx context.Context, userID primitive.ObjectID, p paging.Params) (paging.Page[models.Rating], error) {
	return s.List(ctx, ratingstore.ListFilter{RaterID: &userID}, p)
}

// List is the admin view over every rating.
func (s *Service) List(ctx context.Context, f ratingstore.ListFilter, p paging.Params) (paging.Page[models.Rating], error) {
	rows, total, err := s.ratings.List(ctx, f, p)
	if err != nil {
		return paging.Page[models.Rating]{}, err
	}
	return paging.NewPage(rows, total, p), nil
}
