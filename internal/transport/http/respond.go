package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adityanagar10/buzzline/backend/internal/domain"
)

type errorBody struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// writeError maps the taxonomy onto HTTP statuses. Internal causes stay
// in the logs; only the stable kind and message go out.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	message := err.Error()

	var status int
	switch kind {
	case domain.KindValidation, domain.KindUnsupportedProvider:
		status = http.StatusBadRequest
	case domain.KindInvalidCredentials, domain.KindUnauthorized,
		domain.KindInvalidToken, domain.KindTokenMismatch, domain.KindAuthorization:
		status = http.StatusUnauthorized
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindAccountLocked:
		status = http.StatusTooManyRequests
	case domain.KindUnavailable:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
		message = "internal server error"
		log.Printf("[HTTP] Internal error: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: &errorBody{Kind: kind, Message: message}})
}
