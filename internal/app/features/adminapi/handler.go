// internal/app/features/adminapi/handler.go
package adminapi

import (
	"github.com/dalemusser/ridehub/internal/app/features/account"
	dashboardsvc "github.com/dalemusser/ridehub/internal/app/services/dashboard"
	documentsvc "github.com/dalemusser/ridehub/internal/app/services/documents"
	evpsvc "github.com/dalemusser/ridehub/internal/app/services/evps"
	ratingsvc "github.com/dalemusser/ridehub/internal/app/services/ratings"
	ridesvc "github.com/dalemusser/ridehub/internal/app/services/rides"
	rolesvc "github.com/dalemusser/ridehub/internal/app/services/roles"
	settingssvc "github.com/dalemusser/ridehub/internal/app/services/settings"
	subscriptionsvc "github.com/dalemusser/ridehub/internal/app/services/subscriptions"
	usersvc "github.com/dalemusser/ridehub/internal/app/services/users"
	walletsvc "github.com/dalemusser/ridehub/internal/app/services/wallet"
	withdrawalsvc "github.com/dalemusser/ridehub/internal/app/services/withdrawals"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	"github.com/dalemusser/ridehub/internal/app/system/auditlog"
	"github.com/dalemusser/ridehub/internal/app/system/authz"
	"go.uber.org/zap"
)

// Services are the domain services the admin console drives.
type Services struct {
	Users         *usersvc.Service
	Roles         *rolesvc.Service
	Settings      *settingssvc.Service
	Documents     *documentsvc.Service
	Withdrawals   *withdrawalsvc.Service
	Wallet        *walletsvc.Service
	Rides         *ridesvc.Service
	Ratings       *ratingsvc.Service
	Subscriptions *subscriptionsvc.Service
	Evps          *evpsvc.Service
	Dashboard     *dashboardsvc.Service
}

// Handler serves /api/admin.
type Handler struct {
	Services
	Account  *account.Handler
	Perms    authz.PermissionSource
	AuditLog *audit.Store
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(acct *account.Handler, svc Services, perms authz.PermissionSource, auditStore *audit.Store, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Services: svc,
		Account:  acct,
		Perms:    perms,
		AuditLog: auditStore,
		Audit:    auditLog,
		Log:      logger,
	}
}
