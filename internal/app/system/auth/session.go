package auth

import (
	"errors"
	"net/http"

	"github.com/dalemusser/ridehub/internal/domain/models"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Admin console session                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
	userName  = "user_name"
	userEmail = "user_email"
	userRole  = "user_role"
)

// SessionManager stores the signed-in admin in a signed cookie so the admin
// console can call the API without handling tokens itself.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
}

// NewSessionManager builds the cookie store. In production (secure=true)
// cookies are Secure with SameSite=None; in local dev over http they use Lax.
func NewSessionManager(sessionKey, name, domain string, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, errors.New("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   12 * 60 * 60,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	logger.Info("admin session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name}, nil
}

// SignIn records u in the session cookie.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u models.User) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID.Hex()
	sess.Values[userName] = u.FullName
	sess.Values[userEmail] = u.Email
	sess.Values[userRole] = u.Role
	return sess.Save(r, w)
}

// SignOut expires the session cookie.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// Principal returns the signed-in user from the cookie, or nil.
func (m *SessionManager) Principal(r *http.Request) *Principal {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		return nil
	}
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return nil
	}
	return &Principal{
		ID:    getString(sess, userIDKey),
		Name:  getString(sess, userName),
		Email: getString(sess, userEmail),
		Role:  getString(sess, userRole),
	}
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
