// Package usersvc owns accounts: registration, credentials, password
// resets, profiles, device tokens, and admin account management.
package usersvc

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/audit"
	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	rolestore "github.com/dalemusser/ridehub/internal/app/store/roles"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ridehub/internal/app/system/normalize"
	"github.com/dalemusser/ridehub/internal/app/system/paging"
	"github.com/dalemusser/ridehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Admin lockout: this many failed logins inside the window blocks sign-in.
const (
	AdminLockoutThreshold = 5
	AdminLockoutWindow    = 15 * time.Minute
)

var (
	ErrEmailTaken         = apierr.BadRequest("An account with this email already exists")
	ErrInvalidCredentials = apierr.Unauthorized("Invalid email or password")
	ErrDisabled           = apierr.Unauthorized("Your account has been disabled")
	ErrLocked             = apierr.TooMany("Too many failed sign-in attempts. Try again later.")
	ErrUserNotFound       = apierr.NotFound("User not found")
	ErrRoleNotFound       = apierr.NotFound("Role not found")
	ErrWrongPassword      = apierr.BadRequest("Current password is incorrect")
	ErrWeakPassword       = apierr.BadRequest(auth.ErrWeakPassword.Error())
	ErrBadResetToken      = apierr.BadRequest("Invalid or expired reset token")
	ErrBadRole            = apierr.BadRequest("role must be passenger or driver")
	ErrSelfStatus         = apierr.BadRequest("You cannot change your own status")
	ErrSuperAdminLocked   = apierr.Forbidden("The super admin account cannot be changed")
	ErrNotAdmin           = apierr.BadRequest("Roles can only be assigned to admin accounts")
)

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

type Service struct {
	users   *userstore.Store
	roles   *rolestore.Store
	audit   *audit.Store
	resets  *auth.ResetTokens
	events  Publisher
	baseURL string
	log     *zap.Logger
}

// New wires the service. resetBaseURL is the public address reset links
// point at.
func New(users *userstore.Store, roles *rolestore.Store, auditStore *audit.Store, resets *auth.ResetTokens, pub Publisher, resetBaseURL string, logger *zap.Logger) *Service {
	return &Service{
		users:   users,
		roles:   roles,
		audit:   auditStore,
		resets:  resets,
		events:  pub,
		baseURL: strings.TrimRight(resetBaseURL, "/"),
		log:     logger,
	}
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.events != nil {
		s.events.Publish(ctx, e)
	}
}

func hash(pw string) (string, error) {
	h, err := auth.HashPassword(pw)
	if errors.Is(err, auth.ErrWeakPassword) {
		return "", ErrWeakPassword
	}
	return h, err
}

func (s *Service) load(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

/*───────────────────────────────────────────────────────────────────────────*
| Registration and sign-in                                                   |
*───────────────────────────────────────────────────────────────────────────*/

// VehicleInput describes a driver's car.
type VehicleInput struct {
	Make  string `json:"make" validate:"required,max=50"`
	Model string `json:"model" validate:"required,max=50"`
	Year  int    `json:"year" validate:"omitempty,gte=1950,lte=2100"`
	Color string `json:"color" validate:"omitempty,max=30"`
	Plate string `json:"plate" validate:"required,max=20"`
}

func (v *VehicleInput) vehicle() *models.Vehicle {
	if v == nil {
		return nil
	}
	return &models.Vehicle{
		Make:  htmlsanitize.StripTags(strings.TrimSpace(v.Make)),
		Model: htmlsanitize.StripTags(strings.TrimSpace(v.Model)),
		Year:  v.Year,
		Color: htmlsanitize.StripTags(strings.TrimSpace(v.Color)),
		Plate: strings.ToUpper(strings.TrimSpace(v.Plate)),
	}
}

// RegisterInput is the public sign-up body.
type RegisterInput struct {
	FullName string        `json:"full_name" validate:"required,max=100"`
	Email    string        `json:"email" validate:"required,email,max=254"`
	Phone    string        `json:"phone" validate:"omitempty,max=30"`
	Password string        `json:"password" validate:"required,min=8,max=128"`
	Role     string        `json:"role" validate:"required"`
	Vehicle  *VehicleInput `json:"vehicle" validate:"omitempty"`
}

// Register creates a passenger or driver account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	role := normalize.Token(in.Role)
	if role != models.RolePassenger && role != models.RoleDriver {
		return models.User{}, ErrBadRole
	}
	h, err := hash(in.Password)
	if err != nil {
		return models.User{}, err
	}
	u := models.User{
		FullName:     htmlsanitize.StripTags(in.FullName),
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: h,
		Role:         role,
	}
	if role == models.RoleDriver {
		u.Vehicle = in.Vehicle.vehicle()
	}
	u, err = s.users.Create(ctx, u)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		return models.User{}, ErrEmailTaken
	}
	if err != nil {
		return models.User{}, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("role", role))
	s.publish(ctx, events.UserEvent{Name: events.UserRegistered, UserID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role})
	return u, nil
}

// Authenticate checks credentials. On failure it also returns the audit
// event type describing why, and the matched user id when there was one.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, docstore.ErrNotFound) {
		// Spend comparable time to an existing account.
		auth.CheckPassword(dummyHash(), password)
		return nil, audit.EventLoginFailedUserNotFound, ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return u, audit.EventLoginFailedWrongPassword, ErrInvalidCredentials
	}
	if !u.IsActive() {
		return u, audit.EventLoginFailedUserDisabled, ErrDisabled
	}
	if err := s.users.TouchLogin(ctx, u.ID); err != nil {
		s.log.Warn("touch login failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	return u, "", nil
}

// AdminLocked reports whether the admin has reached the failed-login
// threshold within the lockout window.
func (s *Service) AdminLocked(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	n, err := s.audit.FailedLoginsSince(ctx, userID, time.Now().UTC().Add(-AdminLockoutWindow))
	if err != nil {
		return false, err
	}
	return n >= AdminLockoutThreshold, nil
}

// AdminLoginFailed is called after a failed admin login has been recorded.
// The failure that reaches the threshold raises a security alert.
func (s *Service) AdminLoginFailed(ctx context.Context, u *models.User, ip string) {
	n, err := s.audit.FailedLoginsSince(ctx, u.ID, time.Now().UTC().Add(-AdminLockoutWindow))
	if err != nil {
		s.log.Warn("count failed logins", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		return
	}
	if n == AdminLockoutThreshold {
		s.log.Warn("admin account locked", zap.String("user_id", u.ID.Hex()), zap.String("ip", ip))
		s.publish(ctx, events.AdminLoginLockedEvent{UserID: u.ID, Email: u.Email, FullName: u.FullName, IP: ip, Attempts: int(n)})
	}
}

/*───────────────────────────────────────────────────────────────────────────*
| Passwords                                                                  |
*───────────────────────────────────────────────────────────────────────────*/

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, id primitive.ObjectID, current, next string) error {
	u, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return ErrWrongPassword
	}
	h, err := hash(next)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, id, h, false); err != nil {
		return err
	}
	s.publish(ctx, events.UserEvent{Name: events.UserPasswordChanged, UserID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role})
	return nil
}

// ForgotPassword emails a reset link when email belongs to an active
// account. Unknown addresses succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !u.IsActive() {
		return nil
	}
	token, err := s.resets.Issue(u.ID, u.PasswordHash)
	if err != nil {
		return err
	}
	s.publish(ctx, events.UserEvent{
		Name:     events.UserPasswordResetRequest,
		UserID:   u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
		ResetURL: s.baseURL + "/reset-password?token=" + url.QueryEscape(token),
	})
	return nil
}

// ResetPassword sets a new password from a reset token. A token stops
// working once the password it was issued against changes.
func (s *Service) ResetPassword(ctx context.Context, token, next string) (*models.User, error) {
	id, fp, err := s.resets.Verify(token)
	if err != nil {
		return nil, ErrBadResetToken
	}
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrBadResetToken
	}
	if err != nil {
		return nil, err
	}
	if !auth.Matches(fp, u.PasswordHash) {
		return nil, ErrBadResetToken
	}
	h, err := hash(next)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetPassword(ctx, id, h, false); err != nil {
		return nil, err
	}
	s.publish(ctx, events.UserEvent{Name: events.UserPasswordChanged, UserID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role})
	return u, nil
}

/*───────────────────────────────────────────────────────────────────────────*
| Profile                                                                    |
*───────────────────────────────────────────────────────────────────────────*/

func (s *Service) GetProfile(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.load(ctx, id)
}

// ProfileInput is the self-service edit body. Omitted fields are kept.
type ProfileInput struct {
	FullName *string       `json:"full_name" validate:"omitempty,min=1,max=100"`
	Phone    *string       `json:"phone" validate:"omitempty,max=30"`
	Vehicle  *VehicleInput `json:"vehicle" validate:"omitempty"`
}

// UpdateProfile applies in. Only drivers may set a vehicle.
func (s *Service) UpdateProfile(ctx context.Context, u models.User, in ProfileInput) (*models.User, error) {
	upd := userstore.ProfileUpdate{Phone: in.Phone}
	if in.FullName != nil {
		name := htmlsanitize.StripTags(*in.FullName)
		upd.FullName = &name
	}
	if in.Vehicle != nil {
		if u.Role != models.RoleDriver {
			return nil, apierr.BadRequest("Only drivers have a vehicle")
		}
		upd.Vehicle = in.Vehicle.vehicle()
	}
	out, err := s.users.UpdateProfile(ctx, u.ID, upd)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return out, err
}

func (s *Service) AddDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apierr.BadRequest("token is required")
	}
	return s.users.AddDeviceToken(ctx, id, token)
}

func (s *Service) RemoveDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return s.users.RemoveDeviceToken(ctx, id, strings.TrimSpace(token))
}

/*───────────────────────────────────────────────────────────────────────────*
| Admin                                                                      |
*───────────────────────────────────────────────────────────────────────────*/

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, f userstore.ListFilter, p paging.Params) (paging.Page[models.User], error) {
	f.Role = normalize.Token(f.Role)
	f.Status = normalize.Token(f.Status)
	items, total, err := s.users.List(ctx, f, p)
	if err != nil {
		return paging.Page[models.User]{}, err
	}
	return paging.NewPage(items, total, p), nil
}

func (s *Service) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.load(ctx, id)
}

// CountByRole returns user totals keyed by role.
func (s *Service) CountByRole(ctx context.Context) (map[string]int64, error) {
	return s.users.CountByRole(ctx)
}

// SetStatus enables or disables an account. Admins cannot change their
// own status or the super admin's.
func (s *Service) SetStatus(ctx context.Context, id primitive.ObjectID, status string, actor primitive.ObjectID) (*models.User, error) {
	if id == actor {
		return nil, ErrSelfStatus
	}
	status = normalize.Token(status)
	if status != models.UserStatusActive && status != models.UserStatusDisabled {
		return nil, apierr.BadRequest("status must be active or disabled")
	}
	target, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.IsSuperAdmin {
		return nil, ErrSuperAdminLocked
	}
	return s.users.SetStatus(ctx, id, status)
}

// CreateAdminInput is the body for inviting an admin.
type CreateAdminInput struct {
	FullName string `json:"full_name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	RoleID   string `json:"role_id" validate:"omitempty,len=24,hexadecimal"`
}

// CreateAdmin creates an admin with a temporary password that must be
// changed at first sign-in. The invitation email carries the password.
func (s *Service) CreateAdmin(ctx context.Context, in CreateAdminInput, actor primitive.ObjectID) (models.User, error) {
	var roleID *primitive.ObjectID
	if in.RoleID != "" {
		id, err := primitive.ObjectIDFromHex(in.RoleID)
		if err != nil {
			return models.User{}, ErrRoleNotFound
		}
		if ok, err := s.roles.Exists(ctx, bson.M{"_id": id}); err != nil {
			return models.User{}, err
		} else if !ok {
			return models.User{}, ErrRoleNotFound
		}
		roleID = &id
	}
	temp, err := TempPassword()
	if err != nil {
		return models.User{}, err
	}
	h, err := hash(temp)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.users.Create(ctx, models.User{
		FullName:           htmlsanitize.StripTags(in.FullName),
		Email:              in.Email,
		PasswordHash:       h,
		Role:               models.RoleAdmin,
		RoleID:             roleID,
		MustChangePassword: true,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		return models.User{}, ErrEmailTaken
	}
	if err != nil {
		return models.User{}, err
	}
	s.publish(ctx, events.AdminCreatedEvent{UserID: u.ID, Email: u.Email, FullName: u.FullName, TempPassword: temp, CreatedBy: actor})
	return u, nil
}

// AssignRole sets (or with nil, clears) an admin's permission role.
func (s *Service) AssignRole(ctx context.Context, userID primitive.ObjectID, roleID *primitive.ObjectID) (*models.User, error) {
	target, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.Role != models.RoleAdmin {
		return nil, ErrNotAdmin
	}
	if target.IsSuperAdmin {
		return nil, ErrSuperAdminLocked
	}
	if roleID != nil {
		if ok, err := s.roles.Exists(ctx, bson.M{"_id": *roleID}); err != nil {
			return nil, err
		} else if !ok {
			return nil, ErrRoleNotFound
		}
	}
	return s.users.SetRole(ctx, userID, roleID)
}

// EnsureSuperAdmin makes sure email is a super admin. A missing account is
// created with password, or with a logged temporary password when empty.
func (s *Service) EnsureSuperAdmin(ctx context.Context, email, password string) error {
	email = normalize.Email(email)
	if email == "" {
		return nil
	}
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.IsSuperAdmin && u.Role == models.RoleAdmin && u.IsActive() {
			return nil
		}
		s.log.Info("promoting super admin", zap.String("email", email))
		return s.users.UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{
			"role":          models.RoleAdmin,
			"is_superadmin": true,
			"status":        models.UserStatusActive,
			"updated_at":    time.Now().UTC(),
		}})
	case !errors.Is(err, docstore.ErrNotFound):
		return err
	}

	mustChange := false
	if password == "" {
		if password, err = TempPassword(); err != nil {
			return err
		}
		mustChange = true
		s.log.Warn("super admin created with a temporary password; change it after first sign-in",
			zap.String("email", email), zap.String("temp_password", password))
	}
	h, err := hash(password)
	if err != nil {
		return err
	}
	_, err = s.users.Create(ctx, models.User{
		FullName:           "Super Admin",
		Email:              email,
		PasswordHash:       h,
		Role:               models.RoleAdmin,
		IsSuperAdmin:       true,
		MustChangePassword: mustChange,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		return nil
	}
	return err
}

var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("not-a-real-password")
	return h
})

const tempAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// TempPassword returns a random 12 character password without
// look-alike characters.
func TempPassword() (string, error) {
	b := make([]byte, 12)
	max := big.NewInt(int64(len(tempAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tempAlphabet[n.Int64()]
	}
	return string(b), nil
}
