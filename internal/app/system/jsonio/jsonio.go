// Package jsonio decodes and validates JSON request bodies and writes JSON
// responses.
package jsonio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/dalemusser/ridehub/internal/app/system/apierr"
	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Decode reads r's JSON body into dst and validates it with the struct's
// `validate` tags. Failures come back as *apierr.Error with status 400.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return apierr.BadRequest("Request body is required")
		case errors.As(err, &maxErr):
			return apierr.New(http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.As(err, &syntaxErr):
			return apierr.BadRequest("Malformed JSON")
		case errors.As(err, &typeErr):
			return apierr.BadRequest(fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type.Kind()))
		default:
			return apierr.BadRequest("Invalid request body")
		}
	}
	return Validate(dst)
}

// Validate runs struct validation on v.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apierr.BadRequest("Invalid request body")
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apierr.BadRequest(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return f + " is required"
	case "email":
		return f + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", f, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", f, fe.Param())
	case "latitude", "longitude":
		return f + " must be a valid " + fe.Tag()
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "len":
		return fmt.Sprintf("%s must be %s characters", f, fe.Param())
	case "mongodb":
		return f + " must be a valid id"
	case "e164":
		return f + " must be a phone number in +country format"
	default:
		return f + " is invalid"
	}
}

// Write encodes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { Write(w, http.StatusOK, v) }

// Created writes v with 201.
func Created(w http.ResponseWriter, v any) { Write(w, http.StatusCreated, v) }

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

// Message is the body for endpoints that only confirm an action.
type Message struct {
	Message string `json:"message"`
}
