package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/travelbook/internal/apiclient"
	"github.com/example/travelbook/internal/checkout"
	"github.com/example/travelbook/internal/roster"
)

// statusClientClosed is the non-standard status used when the caller went away.
const statusClientClosed = 499

type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Status int               `json:"status"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code, Status: status})
}

func respondValidation(w http.ResponseWriter, fields checkout.ValidationErrors) {
	respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:  "validation failed",
		Code:   "validation_failed",
		Status: http.StatusUnprocessableEntity,
		Fields: fields,
	})
}

// respondErr maps domain and upstream errors onto the error envelope.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiclient.Error
	switch {
	case errors.As(err, &apiErr):
		status := apiErr.Status
		switch apiErr.Kind {
		case apiclient.KindNetwork:
			status = http.StatusBadGateway
		case apiclient.KindCanceled:
			status = statusClientClosed
		}
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.StatusText
		}
		respondError(w, status, string(apiErr.Kind), msg)
	case errors.Is(err, checkout.ErrSessionNotFound), errors.Is(err, checkout.ErrSessionClosed):
		respondError(w, http.StatusNotFound, "no_session", err.Error())
	case errors.Is(err, checkout.ErrNotAtPayment), errors.Is(err, checkout.ErrAlreadyBooked):
		respondError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, roster.ErrProfileNotFound):
		respondError(w, http.StatusNotFound, "profile_not_found", err.Error())
	case errors.Is(err, roster.ErrNoTraveler):
		respondError(w, http.StatusBadRequest, "invalid_traveler", err.Error())
	case errors.Is(err, roster.ErrBlankProfile):
		respondError(w, http.StatusBadRequest, "blank_profile", err.Error())
	default:
		s.log().Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
