// Package rolesvc manages admin permission roles.
package rolesvc

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	rolestore "github.com/dalemusser/ridehub/internal/app/store/roles"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound      = apierr.NotFound("Role not found")
	ErrDuplicateName = apierr.BadRequest("A role with this name already exists")
	ErrSystemRole    = apierr.BadRequest("System roles cannot be modified")
	ErrInUse         = apierr.BadRequest("Role is assigned to one or more admins")
)

type Service struct {
	roles *rolestore.Store
	users *userstore.Store
}

func New(roles *rolestore.Store, users *userstore.Store) *Service {
	return &Service{roles: roles, users: users}
}

// Input is the create/update body.
type Input struct {
	Name        string   `json:"name" validate:"required,max=60"`
	Description string   `json:"description" validate:"omitempty,max=300"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

// permissions validates and de-duplicates perms in catalogue order.
func permissions(perms []string) ([]string, error) {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if !models.IsPermission(p) {
			return nil, apierr.BadRequest("Unknown permission: " + p)
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		return slices.Index(models.AllPermissions, a) - slices.Index(models.AllPermissions, b)
	})
	return out, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, rolestore.ErrDuplicateName):
		return ErrDuplicateName
	case errors.Is(err, rolestore.ErrSystemRole):
		return ErrSystemRole
	}
	return err
}

func (s *Service) Create(ctx context.Context, in Input) (models.Role, error) {
	perms, err := permissions(in.Permissions)
	if err != nil {
		return models.Role{}, err
	}
	r, err := s.roles.Create(ctx, models.Role{
		Name:        htmlsanitize.StripTags(in.Name),
		Description: htmlsanitize.StripTags(in.Description),
		Permissions: perms,
	})
	return r, mapErr(err)
}

func (s *Service) Update(ctx context.Context, id primitive.ObjectID, in Input) (*models.Role, error) {
	perms, err := permissions(in.Permissions)
	if err != nil {
		return nil, err
	}
	r, err := s.roles.Update(ctx, id, htmlsanitize.StripTags(in.Name), htmlsanitize.StripTags(in.Description), perms)
	return r, mapErr(err)
}

// Delete removes a role that no admin holds.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.users.CountWithRole(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrInUse
	}
	return mapErr(s.roles.Delete(ctx, id))
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.Role, error) {
	r, err := s.roles.FindByID(ctx, id)
	return r, mapErr(err)
}

func (s *Service) List(ctx context.Context) ([]models.Role, error) {
	out, err := s.roles.List(ctx)
	if out == nil && err == nil {
		out = []models.Role{}
	}
	return out, err
}

// Catalogue returns every grantable permission.
func (s *Service) Catalogue() []string {
	return slices.Clone(models.AllPermissions)
}
