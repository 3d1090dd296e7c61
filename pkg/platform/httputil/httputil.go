// Package httputil centralizes JSON response rendering so every handler
// speaks the same envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "reliefhub/pkg/domain-errors"
)

// WriteJSON renders v as a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope.
// Internal errors omit the description so infrastructure details never leak
// to clients; everything else carries the human-readable message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) && de.Message != "" {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
