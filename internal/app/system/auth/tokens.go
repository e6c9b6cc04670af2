package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	errShortSecret  = errors.New("jwt secret must be at least 32 characters")
)

// MinSecretLength is the shortest accepted HMAC signing secret.
const MinSecretLength = 32

type tokenClaims struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	RoleID       string `json:"rid,omitempty"`
	IsSuperAdmin bool   `json:"sa,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the request principal.
func (c *tokenClaims) Principal() *Principal {
	return &Principal{
		ID:           c.Subject,
		Name:         c.Name,
		Email:        c.Email,
		Role:         c.Role,
		RoleID:       c.RoleID,
		IsSuperAdmin: c.IsSuperAdmin,
	}
}

// TokenService issues and verifies HS256 access tokens.
type TokenService struct {
	secret    []byte
	ttl       time.Duration
	issuer    string
	clockSkew time.Duration
	now       func() time.Time
}

// NewTokenService returns a TokenService. secret must be at least
// MinSecretLength bytes.
func NewTokenService(secret string, ttl time.Duration, issuer string) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, errShortSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		secret:    []byte(secret),
		ttl:       ttl,
		issuer:    issuer,
		clockSkew: time.Minute,
		now:       time.Now,
	}, nil
}

// Issue signs an access token for u and returns it with its expiry.
func (s *TokenService) Issue(u models.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := tokenClaims{
		Name:         u.FullName,
		Email:        u.Email,
		Role:         u.Role,
		IsSuperAdmin: u.IsSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	if u.RoleID != nil {
		claims.RoleID = u.RoleID.Hex()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a token and returns the principal it names. Expired
// tokens return ErrExpiredToken; every other failure returns ErrInvalidToken.
func (s *TokenService) Parse(token string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims.Principal(), nil
}
