package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/collectr-app/authgate/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

func handleError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, model.ErrNoPendingSession):
		status = http.StatusConflict
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	default:
		switch model.KindOf(err) {
		case model.KindValidation:
			status = http.StatusBadRequest
		case model.KindAuth:
			status = http.StatusUnauthorized
		case model.KindNetwork:
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, errorResponse{Error: model.MessageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewValidationError("malformed request body")
	}
	return nil
}
