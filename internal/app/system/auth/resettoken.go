package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrBadResetToken covers tampered, expired, and already-used reset tokens.
var ErrBadResetToken = errors.New("invalid or expired reset token")

const resetTokenName = "pwreset"

type resetPayload struct {
	UserID      string
	Fingerprint string
}

// ResetTokens issues signed, expiring password-reset tokens. A token
// carries a fingerprint of the password hash it was issued against, so it
// stops working once the password changes.
type ResetTokens struct {
	codec *securecookie.SecureCookie
}

// NewResetTokens derives signing and encryption keys from secret.
func NewResetTokens(secret string, ttl time.Duration) *ResetTokens {
	hashKey := sha256.Sum256([]byte("reset-hash:" + secret))
	blockKey := sha256.Sum256([]byte("reset-block:" + secret))
	codec := securecookie.New(hashKey[:], blockKey[:])
	codec.MaxAge(int(ttl.Seconds()))
	return &ResetTokens{codec: codec}
}

// Issue returns a token for userID bound to the current password hash.
func (t *ResetTokens) Issue(userID primitive.ObjectID, passwordHash string) (string, error) {
	return t.codec.Encode(resetTokenName, resetPayload{
		UserID:      userID.Hex(),
		Fingerprint: fingerprint(passwordHash),
	})
}

// Verify decodes token and returns the user id and fingerprint it carries.
// The caller compares the fingerprint against the stored hash with Matches.
func (t *ResetTokens) Verify(token string) (primitive.ObjectID, string, error) {
	var p resetPayload
	if err := t.codec.Decode(resetTokenName, token, &p); err != nil {
		return primitive.NilObjectID, "", ErrBadResetToken
	}
	id, err := primitive.ObjectIDFromHex(p.UserID)
	if err != nil {
		return primitive.NilObjectID, "", ErrBadResetToken
	}
	return id, p.Fingerprint, nil
}

// Matches reports whether fp was issued against passwordHash.
func Matches(fp, passwordHash string) bool {
	return fp != "" && fp == fingerprint(passwordHash)
}

func fingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}
