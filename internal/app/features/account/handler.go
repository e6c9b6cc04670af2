// internal/app/features/account/handler.go
package account

import (
	notificationsvc "github.com/dalemusser/ridehub/internal/app/services/notifications"
	usersvc "github.com/dalemusser/ridehub/internal/app/services/users"
	walletsvc "github.com/dalemusser/ridehub/internal/app/services/wallet"
	"github.com/dalemusser/ridehub/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler serves the endpoints every passenger and driver has: profile,
// password, push device tokens, wallet and the notification inbox.
type Handler struct {
	Users  *usersvc.Service
	Wallet *walletsvc.Service
	Inbox  *notificationsvc.Service
	Audit  *auditlog.Logger
	Log    *zap.Logger
}

func NewHandler(users *usersvc.Service, wallet *walletsvc.Service, inbox *notificationsvc.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:  users,
		Wallet: wallet,
		Inbox:  inbox,
		Audit:  audit,
		Log:    logger,
	}
}
