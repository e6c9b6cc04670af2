// internal/app/features/driverapi/handler.go
package driverapi

import (
	"github.com/dalemusser/ridehub/internal/app/features/account"
	documentsvc "github.com/dalemusser/ridehub/internal/app/services/documents"
	locationsvc "github.com/dalemusser/ridehub/internal/app/services/driverlocations"
	evpsvc "github.com/dalemusser/ridehub/internal/app/services/evps"
	ratingsvc "github.com/dalemusser/ridehub/internal/app/services/ratings"
	ridesvc "github.com/dalemusser/ridehub/internal/app/services/rides"
	subscriptionsvc "github.com/dalemusser/ridehub/internal/app/services/subscriptions"
	usersvc "github.com/dalemusser/ridehub/internal/app/services/users"
	withdrawalsvc "github.com/dalemusser/ridehub/internal/app/services/withdrawals"
	"go.uber.org/zap"
)

// Handler serves /api/driver, the driver app's surface.
type Handler struct {
	Account       *account.Handler
	Users         *usersvc.Service
	Locations     *locationsvc.Service
	Rides         *ridesvc.Service
	Ratings       *ratingsvc.Service
	Documents     *documentsvc.Service
	Withdrawals   *withdrawalsvc.Service
	Subscriptions *subscriptionsvc.Service
	Evps          *evpsvc.Service
	Log           *zap.Logger
}

// Services groups the driver-facing services for NewHandler.
type Services struct {
	Users         *usersvc.Service
	Locations     *locationsvc.Service
	Rides         *ridesvc.Service
	Ratings       *ratingsvc.Service
	Documents     *documentsvc.Service
	Withdrawals   *withdrawalsvc.Service
	Subscriptions *subscriptionsvc.Service
	Evps          *evpsvc.Service
}

func NewHandler(acct *account.Handler, s Services, logger *zap.Logger) *Handler {
	return &Handler{
		Account:       acct,
		Users:         s.Users,
		Locations:     s.Locations,
		Rides:         s.Rides,
		Ratings:       s.Ratings,
		Documents:     s.Documents,
		Withdrawals:   s.Withdrawals,
		Subscriptions: s.Subscriptions,
		Evps:          s.Evps,
		Log:           logger,
	}
}
