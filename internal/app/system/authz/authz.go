// internal/app/system/authz/authz.go

// Package authz gates admin endpoints on the permissions granted by the
// caller's admin role.
package authz

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PermissionSource resolves the permissions granted by an admin role.
type PermissionSource interface {
	Permissions(ctx context.Context, roleID primitive.ObjectID) ([]string, error)
}

// RequirePermission allows admins whose role grants perm. Superadmins
// always pass. Non-admins get 403.
func RequirePermission(src PermissionSource, log *zap.Logger, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.CurrentUser(r)
			if !ok {
				apierr.Write(w, r, log, apierr.Unauthorized("Unauthorized"))
				return
			}
			if strings.ToLower(user.Role) != models.RoleAdmin {
				apierr.Write(w, r, log, apierr.Forbidden("Forbidden resource"))
				return
			}
			if user.IsSuperAdmin {
				next.ServeHTTP(w, r)
				return
			}
			roleID, err := primitive.ObjectIDFromHex(user.RoleID)
			if err != nil {
				apierr.Write(w, r, log, apierr.Forbidden("Missing permission: "+perm))
				return
			}
			perms, err := src.Permissions(r.Context(), roleID)
			if err != nil {
				apierr.Write(w, r, log, err)
				return
			}
			for _, p := range perms {
				if p == perm {
					next.ServeHTTP(w, r)
					return
				}
			}
			apierr.Write(w, r, log, apierr.Forbidden("Missing permission: "+perm))
		})
	}
}
