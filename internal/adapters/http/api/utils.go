package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/petgotchi/petgotchi/internal/adapters/repository"
	service "github.com/petgotchi/petgotchi/internal/app"
	"github.com/petgotchi/petgotchi/internal/domain/prestige"
	"github.com/petgotchi/petgotchi/pkg/logger"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps domain errors to HTTP statuses. Unclassified errors
// are logged and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, prestige.ErrIneligibleStage):
		writeError(w, http.StatusConflict, "ineligible_stage", err)
	case errors.Is(err, repository.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", err)
	case errors.Is(err, service.ErrBatchInProgress):
		writeError(w, http.StatusConflict, "batch_in_progress", err)
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		logger.Get().Named("api").Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", nil)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
