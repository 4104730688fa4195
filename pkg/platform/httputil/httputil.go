// Package httputil writes JSON responses and maps errors to
// {"error": code, "error_description": text} bodies.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps decoded request bodies.
const MaxBodyBytes = 1 << 20

// Error is an error with an HTTP status and a stable machine-readable code.
type Error struct {
	Status      int
	Code        string
	Description string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Description
}

// NewError builds an *Error.
func NewError(status int, code, description string) *Error {
	return &Error{Status: status, Code: code, Description: description}
}

func BadRequest(description string) *Error {
	return NewError(http.StatusBadRequest, "bad_request", description)
}

func NotFound(description string) *Error {
	return NewError(http.StatusNotFound, "not_found", description)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err as a JSON error body. Errors that are not *Error become
// 500 internal_error without a description so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	var httpErr *Error
	if !errors.As(err, &httpErr) {
		httpErr = NewError(http.StatusInternalServerError, "internal_error", "")
	}
	body := map[string]string{"error": httpErr.Code}
	if httpErr.Code != "internal_error" && httpErr.Description != "" {
		body["error_description"] = httpErr.Description
	}
	WriteJSON(w, httpErr.Status, body)
}

// DecodeJSON decodes a JSON object body into dst, keeping numbers as json.Number.
// An empty body leaves dst untouched.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return BadRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}
