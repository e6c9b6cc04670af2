// internal/app/store/documents/documentstore.go
package documentstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names for the two document kinds.
const (
	DriverCollection  = "driver_documents"
	VehicleCollection = "vehicle_documents"
)

var (
	// ErrConcurrentUpload means another upload for the same (driver, type)
	// superseded the active version first.
	ErrConcurrentUpload = errors.New("document was replaced concurrently")
	// ErrAlreadyReviewed is returned when reviewing a document that is no longer pending.
	ErrAlreadyReviewed = errors.New("document already reviewed")
)

// Store manages one versioned document collection.
type Store struct {
	docstore.Repository[models.DocumentRecord]
}

// New binds a store to coll (DriverCollection or VehicleCollection).
func New(db *mongo.Database, coll string) *Store {
	return &Store{Repository: docstore.NewRepository[models.DocumentRecord](db, coll)}
}

// Active returns the active version for (driverID, docType), or docstore.ErrNotFound.
func (s *Store) Active(ctx context.Context, driverID primitive.ObjectID, docType string) (*models.DocumentRecord, error) {
	return s.FindOne(ctx, bson.M{"driver_id": driverID, "document_type": docType, "is_active": true})
}

// Supersede stores doc as the new active version of its (driver, type).
//
// The current active version, if any, is deactivated with a conditional
// update and doc gets Version+1 and PreviousVersionID set to it. Two
// uploads racing for the same type cannot both win: the loser either misses
// the conditional update or hits the unique version/active indexes, and
// gets ErrConcurrentUpload. Callers run this inside txn.Run.
func (s *Store) Supersede(ctx context.Context, doc models.DocumentRecord) (models.DocumentRecord, error) {
	now := time.Now().UTC()
	doc.ID = primitive.NewObjectID()
	doc.Version = 1
	doc.PreviousVersionID = nil
	doc.IsActive = true
	doc.Status = models.DocPending
	doc.CreatedAt, doc.UpdatedAt = now, now

	cur, err := s.Active(ctx, doc.DriverID, doc.DocumentType)
	switch {
	case err == nil:
		ok, err := s.UpdateOne(ctx,
			bson.M{"_id": cur.ID, "is_active": true},
			bson.M{"$set": bson.M{"is_active": false, "updated_at": now}})
		if err != nil {
			return models.DocumentRecord{}, err
		}
		if !ok {
			return models.DocumentRecord{}, ErrConcurrentUpload
		}
		doc.Version = cur.Version + 1
		prev := cur.ID
		doc.PreviousVersionID = &prev
	case errors.Is(err, docstore.ErrNotFound):
		// First upload of this type.
	default:
		return models.DocumentRecord{}, err
	}

	if _, err := s.Insert(ctx, &doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.DocumentRecord{}, ErrConcurrentUpload
		}
		return models.DocumentRecord{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// ListActive returns every active document of driverID.
func (s *Store) ListActive(ctx context.Context, driverID primitive.ObjectID) ([]models.DocumentRecord, error) {
	return s.Find(ctx,
		bson.M{"driver_id": driverID, "is_active": true},
		options.Find().SetSort(bson.D{{Key: "document_type", Value: 1}}))
}

// History returns every version of (driverID, docType), newest first.
func (s *Store) History(ctx context.Context, driverID primitive.ObjectID, docType string) ([]models.DocumentRecord, error) {
	return s.Find(ctx,
		bson.M{"driver_id": driverID, "document_type": docType},
		options.Find().SetSort(bson.D{{Key: "version", Value: -1}}))
}

// Pending returns one page of active documents awaiting review, oldest first.
func (s *Store) Pending(ctx context.Context, p paging.Params) ([]models.DocumentRecord, int64, error) {
	return s.FindPage(ctx,
		bson.M{"is_active": true, "status": models.DocPending},
		bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}, p)
}

// CountPending counts active documents awaiting review.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	return s.Count(ctx, bson.M{"is_active": true, "status": models.DocPending})
}

// Review approves or rejects a pending document.
func (s *Store) Review(ctx context.Context, id primitive.ObjectID, status, reason string, reviewer primitive.ObjectID) (*models.DocumentRecord, error) {
	now := time.Now().UTC()
	set := bson.M{
		"status":      status,
		"reviewed_by": reviewer,
		"reviewed_at": now,
		"updated_at":  now,
	}
	if status == models.DocRejected {
		set["rejection_reason"] = reason
	}
	d, err := s.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": models.DocPending}, bson.M{"$set": set})
	if errors.Is(err, docstore.ErrNotFound) {
		if ok, _ := s.Exists(ctx, bson.M{"_id": id}); ok {
			return nil, ErrAlreadyReviewed
		}
	}
	return d, err
}

// CountApprovedTypes returns how many of types have an approved active
// document for driverID.
func (s *Store) CountApprovedTypes(ctx context.Context, driverID primitive.ObjectID, types []string) (int64, error) {
	return s.Count(ctx, bson.M{
		"driver_id":     driverID,
		"is_active":     true,
		"status":        models.DocApproved,
		"document_type": bson.M{"$in": types},
	})
}
