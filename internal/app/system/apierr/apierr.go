// Package apierr defines the typed errors services return and the single
// writer that turns any error into the JSON error body:
//
//	{"statusCode":404,"timestamp":"2026-01-02T15:04:05Z","message":"Ride not found","path":"/api/user/rides/…"}
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/ridehub/internal/app/store/docstore"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Error is a client-facing error with an HTTP status and a static message.
type Error struct {
	Status  int
	Message string
	Err     error // optional cause, logged but never sent
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same status and message, so sentinel
// values declared with these constructors work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Status == e.Status && t.Message == e.Message
}

func New(status int, msg string) *Error { return &Error{Status: status, Message: msg} }

func BadRequest(msg string) *Error   { return New(http.StatusBadRequest, msg) }
func Unauthorized(msg string) *Error { return New(http.StatusUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(http.StatusForbidden, msg) }
func NotFound(msg string) *Error     { return New(http.StatusNotFound, msg) }
func Conflict(msg string) *Error     { return New(http.StatusConflict, msg) }
func TooMany(msg string) *Error      { return New(http.StatusTooManyRequests, msg) }

// Internal wraps an unexpected failure. Its cause is logged, not returned.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}

// Body is the JSON error shape shared by every endpoint.
type Body struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Message    string `json:"message"`
	Path       string `json:"path,omitempty"`
}

// From classifies err. Unknown errors become a 500.
func From(err error) *Error {
	var ae *Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return &Error{Status: http.StatusNotFound, Message: "Resource not found", Err: err}
	case errors.Is(err, docstore.ErrInvalidID):
		return &Error{Status: http.StatusBadRequest, Message: "Invalid id", Err: err}
	default:
		return Internal(err)
	}
}

// StatusOf returns the HTTP status err would be written with.
func StatusOf(err error) int { return From(err).Status }

// Write sends err as the JSON error body. 5xx errors are logged at error
// level with their cause; 4xx errors are not logged.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	ae := From(err)
	if ae.Status >= 500 && log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Status)
	_ = json.NewEncoder(w).Encode(Body{
		StatusCode: ae.Status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Message:    ae.Message,
		Path:       r.URL.Path,
	})
}

// NotFoundHandler and MethodNotAllowedHandler keep router-level misses in
// the same error shape.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	Write(w, r, nil, NotFound("Cannot "+r.Method+" "+r.URL.Path))
}

func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	Write(w, r, nil, New(http.StatusMethodNotAllowed, "Method not allowed"))
}
