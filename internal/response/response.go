// Package response provides the shared JSON response envelope for HTTP handlers.
// Every endpoint replies with the same shape: data plus an optional client
// message on success, or an error with a kind and optional debug details.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/trackhouse/service/internal/apperr"
)

// Envelope is the standard API response envelope.
type Envelope struct {
	Data          interface{} `json:"data,omitempty"`
	ClientMessage string      `json:"clientMessage,omitempty"`
	Error         *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failure inside the envelope.
type ErrorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Details string      `json:"details,omitempty"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with data and an optional client message.
func OK(w http.ResponseWriter, data interface{}, clientMessage string) {
	JSON(w, http.StatusOK, Envelope{Data: data, ClientMessage: clientMessage})
}

// Created writes a 201 response with data and an optional client message.
func Created(w http.ResponseWriter, data interface{}, clientMessage string) {
	JSON(w, http.StatusCreated, Envelope{Data: data, ClientMessage: clientMessage})
}

// Fail classifies err and writes the matching error envelope. Unknown errors
// get a generic client message; details are debug-only and never required by
// the client.
func Fail(w http.ResponseWriter, err error) {
	ae := apperr.From(err)
	JSON(w, statusFor(ae.Kind), Envelope{
		ClientMessage: ae.ClientMessage,
		Error: &ErrorBody{
			Kind:    ae.Kind,
			Details: ae.Details,
		},
	})
}

// statusFor maps an error kind to its HTTP status code.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Unauthorized writes a 401 response for requests without a valid principal.
func Unauthorized(w http.ResponseWriter, message string) {
	JSON(w, http.StatusUnauthorized, Envelope{
		ClientMessage: message,
		Error:         &ErrorBody{Kind: apperr.KindAuth},
	})
}
