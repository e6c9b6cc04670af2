// internal/domain/models/document.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review statuses for uploaded documents.
const (
	DocPending  = "pending"
	DocApproved = "approved"
	DocRejected = "rejected"
)

// Driver document types.
const (
	DocDrivingLicense = "driving_license"
	DocNationalID     = "national_id"
	DocProfilePhoto   = "profile_photo"
	DocCriminalRecord = "criminal_record"
)

// Vehicle document types.
const (
	DocVehicleRegistration = "registration"
	DocVehicleInsurance    = "insurance"
	DocVehicleInspection   = "inspection"
	DocVehiclePhoto        = "vehicle_photo"
)

// DriverDocumentTypes and VehicleDocumentTypes are the accepted upload types.
var (
	DriverDocumentTypes  = []string{DocDrivingLicense, DocNationalID, DocProfilePhoto, DocCriminalRecord}
	VehicleDocumentTypes = []string{DocVehicleRegistration, DocVehicleInsurance, DocVehicleInspection, DocVehiclePhoto}
)

// DocumentRecord is one version of an uploaded driver or vehicle document.
//
// Versions are append-with-supersede: uploading a new file for the same
// (driver_id, document_type) deactivates the current active record and
// inserts a new one with Version+1 and PreviousVersionID pointing back.
type DocumentRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DriverID     primitive.ObjectID `bson:"driver_id" json:"driver_id"`
	DocumentType string             `bson:"document_type" json:"document_type"`

	FileKey     string `bson:"file_key" json:"-"`
	FileURL     string `bson:"file_url" json:"file_url"`
	FileName    string `bson:"file_name" json:"file_name"`
	ContentType string `bson:"content_type,omitempty" json:"content_type,omitempty"`
	Size        int64  `bson:"size" json:"size"`

	ExpiresAt *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`

	Status          string              `bson:"status" json:"status"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	ReviewedBy      *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`

	Version           int                 `bson:"version" json:"version"`
	PreviousVersionID *primitive.ObjectID `bson:"previous_version_id,omitempty" json:"previous_version_id,omitempty"`
	IsActive          bool                `bson:"is_active" json:"is_active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DriverDocument is a license, ID, or similar personal document.
type DriverDocument = DocumentRecord

// VehicleDocumentRecord is a registration, insurance, or similar vehicle document.
type VehicleDocumentRecord = DocumentRecord
