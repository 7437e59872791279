// Package httputil writes JSON responses and translates domain errors into
// HTTP error envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "clientdesk/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON encodes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and envelope. Internal errors never expose
// their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = describe(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// describe returns the outermost coded message without the wrapped cause,
// so sentinel texts stay out of API responses.
func describe(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}
