// Package httpkit contains small HTTP helpers shared by all handlers.
package httpkit

import (
	"encoding/json"
	"net/http"
)

// DecodeJSON decodes a JSON request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteErr writes a JSON error response of the shape {"error": msg, ...extra}.
func WriteErr(w http.ResponseWriter, status int, msg string, extra map[string]any) {
	body := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		body[k] = v
	}
	body["error"] = msg
	WriteJSON(w, status, body)
}
