// Package problem writes problem-details style error responses so
// handlers never leak stack traces to clients.
package problem

import (
	"encoding/json"
	"net/http"
)

// Details is an RFC7807-shaped error body. Extensions carries endpoint
// specific members such as per-field errors or current etags.
type Details struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Extensions map[string]any `json:"-"`
}

// Write sends a problem response with the given status and detail.
func Write(w http.ResponseWriter, status int, detail string) {
	WriteDetails(w, Details{Status: status, Detail: detail})
}

// WriteDetails sends a fully specified problem response. Extensions are
// flattened into the top-level object alongside the standard members.
func WriteDetails(w http.ResponseWriter, d Details) {
	if d.Type == "" {
		d.Type = "about:blank"
	}
	if d.Title == "" {
		d.Title = http.StatusText(d.Status)
	}

	body := map[string]any{
		"type":   d.Type,
		"title":  d.Title,
		"status": d.Status,
	}
	if d.Detail != "" {
		body["detail"] = d.Detail
	}
	for key, value := range d.Extensions {
		body[key] = value
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(d.Status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}
