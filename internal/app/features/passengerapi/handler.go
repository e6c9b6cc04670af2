// internal/app/features/passengerapi/handler.go
package passengerapi

import (
	"github.com/dalemusser/ridehub/internal/app/features/account"
	contactsvc "github.com/dalemusser/ridehub/internal/app/services/emergencycontacts"
	ratingsvc "github.com/dalemusser/ridehub/internal/app/services/ratings"
	ridesvc "github.com/dalemusser/ridehub/internal/app/services/rides"
	"go.uber.org/zap"
)

// Handler serves /api/user, the passenger app's surface.
type Handler struct {
	Account  *account.Handler
	Rides    *ridesvc.Service
	Ratings  *ratingsvc.Service
	Contacts *contactsvc.Service
	Log      *zap.Logger
}

func NewHandler(acct *account.Handler, rides *ridesvc.Service, ratings *ratingsvc.Service, contacts *contactsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Account:  acct,
		Rides:    rides,
		Ratings:  ratings,
		Contacts: contacts,
		Log:      logger,
	}
}
