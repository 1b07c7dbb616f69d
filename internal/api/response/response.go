package response

import (
	"encoding/json"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// ErrorBody is the error payload of backup operations; Kind and Retryable let
// the frontend decide whether to offer a retry.
type ErrorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Retryable bool   `json:"retryable"`
}

func WriteKindError(w http.ResponseWriter, status int, message, kind string, retryable bool) {
	WriteJSON(w, status, ErrorBody{Error: message, Kind: kind, Retryable: retryable})
}

// ListResponse wraps a list so that an empty result encodes as [] not null.
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

// WriteList writes items as {"items": [...]}.
func WriteList[T any](w http.ResponseWriter, status int, items []T) {
	if items == nil {
		items = []T{}
	}
	WriteJSON(w, status, ListResponse[T]{Items: items})
}
