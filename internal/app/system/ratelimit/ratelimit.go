// Package ratelimit throttles abusive callers of the auth endpoints.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/ridehub/internal/app/system/apierr"
)

// Limiter is a fixed-window counter per key. It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	now      func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New allows limit requests per key every duration.
func New(limit int, duration time.Duration) *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
	}
}

// Allow counts one request for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		l.sweep(now)
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.expiresAt) {
		return l.limit
	}
	if rem := l.limit - w.count; rem > 0 {
		return rem
	}
	return 0
}

// Reset clears key, e.g. after a successful login.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// sweep drops expired windows once the map grows; the caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for k, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, k)
		}
	}
}

// Middleware rejects requests over the per-IP limit with 429.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(ClientIP(r)) {
				apierr.Write(w, r, nil, apierr.TooMany("Too many requests. Please slow down."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP, preferring the first X-Forwarded-For
// entry, then X-Real-IP, then RemoteAddr without its port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter tracks attempts per IP and per email so neither a single
// address nor a distributed attack on one account gets unlimited guesses.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows 10 attempts per IP per minute and 5 per email per
// 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{ip: New(10, time.Minute), email: New(5, 5*time.Minute)}
}

// Check counts one attempt and returns a 429 error when over either limit.
func (ll *LoginLimiter) Check(r *http.Request, email string) error {
	if !ll.ip.Allow(ClientIP(r)) {
		return apierr.TooMany("Too many login attempts. Please wait a minute before trying again.")
	}
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" && !ll.email.Allow(key) {
		return apierr.TooMany("Too many login attempts for this account. Please wait a few minutes.")
	}
	return nil
}

// ResetEmail clears the per-email counter after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		ll.email.Reset(key)
	}
}
