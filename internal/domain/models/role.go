// internal/domain/models/role.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Permission keys granted to admin roles.
const (
	PermUsersRead          = "users.read"
	PermUsersWrite         = "users.write"
	PermRolesWrite         = "roles.write"
	PermRidesRead          = "rides.read"
	PermSettingsWrite      = "settings.write"
	PermDocumentsReview    = "documents.review"
	PermWithdrawalsReview  = "withdrawals.review"
	PermTransactionsExport = "transactions.export"
	PermSubscriptionsWrite = "subscriptions.write"
	PermEvpsWrite          = "evps.write"
	PermAuditRead          = "audit.read"
)

// AllPermissions is the permission catalogue, in display order.
var AllPermissions = []string{
	PermUsersRead,
	PermUsersWrite,
	PermRolesWrite,
	PermRidesRead,
	PermSettingsWrite,
	PermDocumentsReview,
	PermWithdrawalsReview,
	PermTransactionsExport,
	PermSubscriptionsWrite,
	PermEvpsWrite,
	PermAuditRead,
}

// IsPermission reports whether p is in the catalogue.
func IsPermission(p string) bool {
	for _, k := range AllPermissions {
		if k == p {
			return true
		}
	}
	return false
}

// Role groups permissions for admin accounts.
type Role struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Permissions []string           `bson:"permissions" json:"permissions"`
	IsSystem    bool               `bson:"is_system,omitempty" json:"is_system,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Has reports whether the role grants perm.
func (r *Role) Has(perm string) bool {
	for _, p := range r.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
