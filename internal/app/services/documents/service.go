// Package documentsvc stores driver and vehicle documents as versioned
// records and runs the admin review that verifies drivers.
package documentsvc

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	documentstore "github.com/dalemusser/ridehub/internal/app/store/documents"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/blobstore"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ridehub/internal/app/system/normalize"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/app/system/txn"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Kind selects the driver or vehicle document collection.
type Kind string

const (
	KindDriver  Kind = "driver"
	KindVehicle Kind = "vehicle"
)

// MaxUploadBytes caps a single document file.
const MaxUploadBytes = 10 << 20

// Documents that must be approved before a driver is verified.
var (
	RequiredDriverDocuments  = []string{models.DocDrivingLicense, models.DocNationalID}
	RequiredVehicleDocuments = []string{models.DocVehicleRegistration, models.DocVehicleInsurance}
)

var allowedContentTypes = []string{"application/pdf", "image/jpeg", "image/png", "image/webp"}

var (
	ErrInvalidType        = apierr.BadRequest("Invalid document type")
	ErrInvalidFile        = apierr.BadRequest("File must be a PDF, JPEG, PNG or WebP image")
	ErrFileTooLarge       = apierr.BadRequest("File exceeds the 10 MB limit")
	ErrEmptyFile          = apierr.BadRequest("File is required")
	ErrConcurrentUpload   = apierr.Conflict("Another upload for this document type finished first; please retry")
	ErrNotFound           = apierr.NotFound("Document not found")
	ErrAlreadyReviewed    = apierr.BadRequest("Document has already been reviewed")
	ErrInvalidDecision    = apierr.BadRequest("status must be approved or rejected")
	ErrRejectionNeedsText = apierr.BadRequest("A reason is required when rejecting a document")
)

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

type Service struct {
	db       *mongo.Database
	drivers  *documentstore.Store
	vehicles *documentstore.Store
	users    *userstore.Store
	blobs    storage.Store
	events   Publisher
	log      *zap.Logger
}

func New(db *mongo.Database, users *userstore.Store, blobs storage.Store, pub Publisher, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		drivers:  documentstore.New(db, documentstore.DriverCollection),
		vehicles: documentstore.New(db, documentstore.VehicleCollection),
		users:    users,
		blobs:    blobs,
		events:   pub,
		log:      logger,
	}
}

func (s *Service) store(k Kind) (*documentstore.Store, []string, error) {
	switch k {
	case KindDriver:
		return s.drivers, models.DriverDocumentTypes, nil
	case KindVehicle:
		return s.vehicles, models.VehicleDocumentTypes, nil
	}
	return nil, nil, ErrInvalidType
}

func (s *Service) typed(k Kind, docType string) (*documentstore.Store, string, error) {
	st, types, err := s.store(k)
	if err != nil {
		return nil, "", err
	}
	docType = normalize.Token(docType)
	if !slices.Contains(types, docType) {
		return nil, "", ErrInvalidType
	}
	return st, docType, nil
}

// File is an uploaded document body.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload stores f and makes it the active, pending version of docType.
// The previous version, if any, is kept in history.
func (s *Service) Upload(ctx context.Context, k Kind, driverID primitive.ObjectID, docType string, f File, expiresAt *time.Time) (models.DocumentRecord, error) {
	st, docType, err := s.typed(k, docType)
	if err != nil {
		return models.DocumentRecord{}, err
	}
	if f.Body == nil || f.Size == 0 {
		return models.DocumentRecord{}, ErrEmptyFile
	}
	if f.Size > MaxUploadBytes {
		return models.DocumentRecord{}, ErrFileTooLarge
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0]))
	if !slices.Contains(allowedContentTypes, ct) {
		return models.DocumentRecord{}, ErrInvalidFile
	}

	prefix := "documents/" + string(k) + "/" + driverID.Hex()
	obj, err := blobstore.Upload(ctx, s.blobs, prefix, f.Name, io.LimitReader(f.Body, MaxUploadBytes), f.Size, ct)
	if err != nil {
		return models.DocumentRecord{}, err
	}

	var doc models.DocumentRecord
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		doc, err = st.Supersede(ctx, models.DocumentRecord{
			DriverID:     driverID,
			DocumentType: docType,
			FileKey:      obj.Key,
			FileURL:      obj.URL,
			FileName:     blobstore.SanitizeFilename(f.Name),
			ContentType:  ct,
			Size:         obj.Size,
			ExpiresAt:    expiresAt,
		})
		return err
	})
	if err != nil {
		if derr := blobstore.Remove(ctx, s.blobs, obj.Key); derr != nil {
			s.log.Warn("orphaned document blob", zap.String("key", obj.Key), zap.Error(derr))
		}
		if errors.Is(err, documentstore.ErrConcurrentUpload) {
			return models.DocumentRecord{}, ErrConcurrentUpload
		}
		return models.DocumentRecord{}, err
	}

	if k == KindDriver && docType == models.DocProfilePhoto {
		url := obj.URL
		if _, err := s.users.UpdateProfile(ctx, driverID, userstore.ProfileUpdate{PhotoURL: &url}); err != nil {
			s.log.Warn("update profile photo failed", zap.String("driver_id", driverID.Hex()), zap.Error(err))
		}
	}
	// A replaced required document is pending again.
	s.refreshVerified(ctx, driverID)

	s.log.Info("document uploaded",
		zap.String("driver_id", driverID.Hex()),
		zap.String("kind", string(k)),
		zap.String("type", docType),
		zap.Int("version", doc.Version))
	return doc, nil
}

// ListActive returns the driver's current version of each document type.
func (s *Service) ListActive(ctx context.Context, k Kind, driverID primitive.ObjectID) ([]models.DocumentRecord, error) {
	st, _, err := s.store(k)
	if err != nil {
		return nil, err
	}
	out, err := st.ListActive(ctx, driverID)
	if out == nil && err == nil {
		out = []models.DocumentRecord{}
	}
	return out, err
}

// History returns every version of one document type, newest first.
func (s *Service) History(ctx context.Context, k Kind, driverID primitive.ObjectID, docType string) ([]models.DocumentRecord, error) {
	st, docType, err := s.typed(k, docType)
	if err != nil {
		return nil, err
	}
	out, err := st.History(ctx, driverID, docType)
	if out == nil && err == nil {
		out = []models.DocumentRecord{}
	}
	return out, err
}

// Pending returns documents of kind k awaiting review.
func (s *Service) Pending(ctx context.Context, k Kind, p paging.Params) (paging.Page[models.DocumentRecord], error) {
	st, _, err := s.store(k)
	if err != nil {
		return paging.Page[models.DocumentRecord]{}, err
	}
	items, total, err := st.Pending(ctx, p)
	if err != nil {
		return paging.Page[models.DocumentRecord]{}, err
	}
	return paging.NewPage(items, total, p), nil
}

// CountPending counts documents of both kinds awaiting review.
func (s *Service) CountPending(ctx context.Context) (int64, error) {
	a, err := s.drivers.CountPending(ctx)
	if err != nil {
		return 0, err
	}
	b, err := s.vehicles.CountPending(ctx)
	return a + b, err
}

// ReviewInput is the admin decision body.
type ReviewInput struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// Review approves or rejects a pending document, updates the driver's
// verified flag and tells the driver.
func (s *Service) Review(ctx context.Context, k Kind, id primitive.ObjectID, in ReviewInput, reviewer primitive.ObjectID) (*models.DocumentRecord, error) {
	st, _, err := s.store(k)
	if err != nil {
		return nil, err
	}
	status := normalize.Token(in.Status)
	reason := strings.TrimSpace(htmlsanitize.StripTags(in.Reason))
	switch status {
	case models.DocApproved:
		reason = ""
	case models.DocRejected:
		if reason == "" {
			return nil, ErrRejectionNeedsText
		}
	default:
		return nil, ErrInvalidDecision
	}

	doc, err := st.Review(ctx, id, status, reason, reviewer)
	switch {
	case errors.Is(err, documentstore.ErrAlreadyReviewed):
		return nil, ErrAlreadyReviewed
	case errors.Is(err, docstore.ErrNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}

	s.refreshVerified(ctx, doc.DriverID)
	if s.events != nil {
		s.events.Publish(ctx, events.DocumentReviewedEvent{
			DocumentID:   doc.ID,
			DriverID:     doc.DriverID,
			DocumentType: doc.DocumentType,
			Status:       doc.Status,
			Reason:       doc.RejectionReason,
		})
	}
	return doc, nil
}

// Verified reports whether every required driver and vehicle document
// of driverID is approved.
func (s *Service) Verified(ctx context.Context, driverID primitive.ObjectID) (bool, error) {
	n, err := s.drivers.CountApprovedTypes(ctx, driverID, RequiredDriverDocuments)
	if err != nil || n < int64(len(RequiredDriverDocuments)) {
		return false, err
	}
	n, err = s.vehicles.CountApprovedTypes(ctx, driverID, RequiredVehicleDocuments)
	if err != nil {
		return false, err
	}
	return n >= int64(len(RequiredVehicleDocuments)), nil
}

func (s *Service) refreshVerified(ctx context.Context, driverID primitive.ObjectID) {
	ok, err := s.Verified(ctx, driverID)
	if err == nil {
		err = s.users.SetDriverVerified(ctx, driverID, ok)
	}
	if err != nil {
		s.log.Warn("refresh driver verification failed", zap.String("driver_id", driverID.Hex()), zap.Error(err))
	}
}
