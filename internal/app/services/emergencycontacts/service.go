// Package contactsvc manages a rider's emergency contacts.
package contactsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	contactstore "github.com/dalemusser/ridehub/internal/app/store/emergencycontacts"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ridehub/internal/app/system/normalize"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrLimitReached   = apierr.BadRequest(fmt.Sprintf("You can add up to %d emergency contacts", models.MaxEmergencyContacts))
	ErrDuplicatePhone = apierr.BadRequest("A contact with this phone number already exists")
	ErrNotFound       = apierr.NotFound("Emergency contact not found")
	ErrInvalidPhone   = apierr.BadRequest("Phone number is invalid")
)

type Service struct {
	store *contactstore.Store
	log   *zap.Logger
}

func New(store *contactstore.Store, logger *zap.Logger) *Service {
	return &Service{store: store, log: logger}
}

// Input is the body for add and update.
type Input struct {
	Name         string `json:"name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required,max=32"`
	Relationship string `json:"relationship" validate:"omitempty,max=50"`
}

func (in Input) clean() (name, phone, rel string, err error) {
	name = strings.TrimSpace(htmlsanitize.StripTags(in.Name))
	rel = strings.TrimSpace(htmlsanitize.StripTags(in.Relationship))
	phone = normalize.Phone(in.Phone)
	if name == "" {
		return "", "", "", apierr.BadRequest("name is required")
	}
	if len(strings.TrimPrefix(phone, "+")) < 6 {
		return "", "", "", ErrInvalidPhone
	}
	return name, phone, rel, nil
}

func (s *Service) List(ctx context.Context, userID primitive.ObjectID) ([]models.EmergencyContact, error) {
	out, err := s.store.List(ctx, userID)
	if out == nil && err == nil {
		out = []models.EmergencyContact{}
	}
	return out, err
}

// Add stores a new contact. The limit is re-checked after the insert so two
// concurrent adds cannot both slip past it.
func (s *Service) Add(ctx context.Context, userID primitive.ObjectID, in Input) (models.EmergencyContact, error) {
	name, phone, rel, err := in.clean()
	if err != nil {
		return models.EmergencyContact{}, err
	}
	n, err := s.store.CountFor(ctx, userID)
	if err != nil {
		return models.EmergencyContact{}, err
	}
	if n >= models.MaxEmergencyContacts {
		return models.EmergencyContact{}, ErrLimitReached
	}

	c, err := s.store.Create(ctx, models.EmergencyContact{UserID: userID, Name: name, Phone: phone, Relationship: rel})
	if errors.Is(err, contactstore.ErrDuplicatePhone) {
		return models.EmergencyContact{}, ErrDuplicatePhone
	}
	if err != nil {
		return models.EmergencyContact{}, err
	}

	if n, err := s.store.CountFor(ctx, userID); err == nil && n > models.MaxEmergencyContacts {
		if derr := s.store.Delete(ctx, userID, c.ID); derr != nil {
			s.log.Warn("roll back over-limit contact failed", zap.Error(derr))
		}
		return models.EmergencyContact{}, ErrLimitReached
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, userID, id primitive.ObjectID, in Input) (*models.EmergencyContact, error) {
	name, phone, rel, err := in.clean()
	if err != nil {
		return nil, err
	}
	c, err := s.store.Update(ctx, userID, id, name, phone, rel)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, contactstore.ErrDuplicatePhone):
		return nil, ErrDuplicatePhone
	}
	return c, err
}

func (s *Service) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	err := s.store.Delete(ctx, userID, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
