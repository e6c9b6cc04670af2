// Package dashboardsvc gathers the admin overview counters.
package dashboardsvc

import (
	"context"

	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sources are the stores and services the overview reads from.
type Sources struct {
	Users interface {
		CountByRole(ctx context.Context) (map[string]int64, error)
	}
	Rides interface {
		CountByStatus(ctx context.Context) (map[string]int64, error)
		Revenue(ctx context.Context) (fares, commission float64, err error)
	}
	Documents interface {
		CountPending(ctx context.Context) (int64, error)
	}
	Withdrawals interface {
		CountPending(ctx context.Context) (int64, error)
	}
	Subscriptions interface {
		CountActivePaid(ctx context.Context) (int64, error)
	}
}

// Overview is the admin dashboard payload.
type Overview struct {
	UsersByRole        map[string]int64 `json:"users_by_role"`
	RidesByStatus      map[string]int64 `json:"rides_by_status"`
	CompletedFares     float64          `json:"completed_fares"`
	CommissionEarned   float64          `json:"commission_earned"`
	PendingDocuments   int64            `json:"pending_documents"`
	PendingWithdrawals int64            `json:"pending_withdrawals"`
	ActivePaidSubs     int64            `json:"active_paid_subscriptions"`
	ActiveRides        int64            `json:"active_rides"`
}

type Service struct {
	src Sources
	log *zap.Logger
}

func New(src Sources, logger *zap.Logger) *Service {
	return &Service{src: src, log: logger}
}

// Overview runs the counters concurrently. The first failure cancels the
// rest and is returned.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var out Overview
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		out.UsersByRole, err = s.src.Users.CountByRole(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.RidesByStatus, err = s.src.Rides.CountByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.CompletedFares, out.CommissionEarned, err = s.src.Rides.Revenue(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.PendingDocuments, err = s.src.Documents.CountPending(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.PendingWithdrawals, err = s.src.Withdrawals.CountPending(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.ActivePaidSubs, err = s.src.Subscriptions.CountActivePaid(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.log.Warn("dashboard overview failed", zap.Error(err))
		return Overview{}, err
	}
	for _, st := range models.ActiveRideStatuses {
		out.ActiveRides += out.RidesByStatus[st]
	}
	if out.UsersByRole == nil {
		out.UsersByRole = map[string]int64{}
	}
	if out.RidesByStatus == nil {
		out.RidesByStatus = map[string]int64{}
	}
	return out, nil
}
