// internal/app/store/audit/store.go
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth event types
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedUserDisabled  = "login_failed_user_disabled"
	EventLoginFailedRateLimit     = "login_failed_rate_limit"
	EventLogout                   = "logout"
	EventRegistered               = "registered"
	EventPasswordChanged          = "password_changed"
	EventPasswordResetRequested   = "password_reset_requested"
	EventPasswordReset            = "password_reset"
)

// Admin event types
const (
	EventAdminCreated       = "admin_created"
	EventUserDisabled       = "user_disabled"
	EventUserEnabled        = "user_enabled"
	EventRoleAssigned       = "role_assigned"
	EventRoleCreated        = "role_created"
	EventRoleUpdated        = "role_updated"
	EventRoleDeleted        = "role_deleted"
	EventSettingsUpdated    = "settings_updated"
	EventDocumentApproved   = "document_approved"
	EventDocumentRejected   = "document_rejected"
	EventWithdrawalApproved = "withdrawal_approved"
	EventWithdrawalRejected = "withdrawal_rejected"
	EventPlanCreated        = "plan_created"
	EventPlanUpdated        = "plan_updated"
	EventPlanDeleted        = "plan_deleted"
	EventEvpIssued          = "evp_issued"
	EventEvpRevoked         = "evp_revoked"
	EventTransactionsExport = "transactions_exported"
	EventRideSettled        = "ride_settled"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`

	// Event classification
	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"event_type"`

	// Who
	UserID  *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`   // affected user
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"` // admin who acted

	// Context
	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`

	// Outcome
	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	UserID    *primitive.ObjectID
	ActorID   *primitive.ObjectID
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
}

func (f QueryFilter) bson() bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.ActorID != nil {
		q["actor_id"] = *f.ActorID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.StartTime != nil || f.EndTime != nil {
		tq := bson.M{}
		if f.StartTime != nil {
			tq["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			tq["$lte"] = *f.EndTime
		}
		q["timestamp"] = tq
	}
	return q
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// EnsureIndexes creates the indexes used by the admin audit list.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ts"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_ts"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_ts"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_cat_type_ts"),
		},
	})
	return err
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("audit log: %w", err)
	}
	return nil
}

// Query returns one page of events matching filter, newest first, and the
// total number of matches.
func (s *Store) Query(ctx context.Context, filter QueryFilter, p paging.Params) ([]Event, int64, error) {
	q := filter.bson()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("audit count: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit))
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("audit find: %w", err)
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, 0, fmt.Errorf("audit decode: %w", err)
	}
	return events, total, nil
}

// FailedLoginsSince counts failed logins for userID since the given time.
func (s *Store) FailedLoginsSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"category":  CategoryAuth,
		"user_id":   userID,
		"success":   false,
		"timestamp": bson.M{"$gte": since},
	})
}
