// Package httputil provides JSON response helpers shared by handlers and
// middleware.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/secretlease/marketplace/internal/errors"
)

// Envelope is the wire shape for every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// WriteJSON writes an arbitrary payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// WriteListing writes a success envelope with a count, used for collections.
func WriteListing(w http.ResponseWriter, status int, count int, data interface{}) {
	WriteJSON(w, status, Envelope{Success: true, Count: &count, Data: data})
}

// WriteError maps an error onto the service taxonomy and writes the failure
// envelope. Non-service errors become a generic internal fault so store and
// driver detail never reaches the caller.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	se := errors.GetServiceError(err)
	if se == nil {
		se = errors.Internal("internal server error", err)
	}

	message := se.Message
	if se.Code == errors.CodeInternal {
		message = "internal server error"
	}

	WriteJSON(w, se.HTTPStatus, Envelope{Success: false, Message: message, Errors: se.Details})
}

// WriteErrorResponse writes a failure envelope from explicit parts. Used by
// middleware that already resolved the status and code.
func WriteErrorResponse(w http.ResponseWriter, _ *http.Request, status int, _ string, message string, details map[string]interface{}) {
	WriteJSON(w, status, Envelope{Success: false, Message: message, Errors: details})
}

// Unauthorized writes a bare 401 envelope.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "authentication required"
	}
	WriteJSON(w, http.StatusUnauthorized, Envelope{Success: false, Message: message})
}
