// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, and the single boundary translation of
// typed guard failures onto the HTTP contract.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rampline/rampline/pkg/authz"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteErrorMessage(w, status, err.Error())
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusForbidden, message)
}

// WriteNotFoundError writes a not found error response (404 Not Found)
func WriteNotFoundError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteInternalError writes an internal server error response (500)
func WriteInternalError(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusInternalServerError, err)
}

// RateLimitState carries the header values attached to both limited
// responses and successful responses approaching the limit.
type RateLimitState struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// SetRateLimitHeaders attaches X-RateLimit-* headers to a response
func SetRateLimitHeaders(w http.ResponseWriter, state RateLimitState) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", state.Limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", state.Remaining))
	if !state.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", state.ResetAt.Unix()))
	}
}

// WriteGuardError is the boundary translator: it maps the typed guard
// failure taxonomy onto the HTTP contract. Guards never touch transport
// concerns; every rejection in the pipeline funnels through here.
//
//	Unauthenticated            -> 401
//	NotAMember                 -> 403
//	Insufficient permissions   -> 403
//	RateLimited                -> 429 (+ Retry-After, X-RateLimit-*)
//	ValidationError            -> 400
//	anything else              -> 500
func WriteGuardError(w http.ResponseWriter, err error) {
	var rle *authz.RateLimitedError
	var ve *authz.ValidationError

	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		WriteUnauthorized(w, err.Error())
	case errors.Is(err, authz.ErrNotAMember):
		WriteForbidden(w, err.Error())
	case errors.Is(err, authz.ErrInsufficientPermissions):
		WriteForbidden(w, err.Error())
	case errors.As(err, &rle):
		retryAfter := int(rle.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(rle.RetryAfter).Unix()))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":       "rate limit exceeded",
			"retry_after": retryAfter,
		})
	case errors.As(err, &ve):
		WriteBadRequest(w, ve.Error())
	default:
		// ErrContextNotBound and unknown errors land here: a guard bug or an
		// unexpected store failure is never translated into an allow.
		WriteErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}
