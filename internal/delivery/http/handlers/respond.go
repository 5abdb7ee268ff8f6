package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/LavaJover/shvark-currency-service/internal/delivery/http/dto/exchange/response"
	"github.com/LavaJover/shvark-currency-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, response.ErrorResponse{Error: msg, Status: status})
}

// writeDomainError maps usecase errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCurrencySeriesNotFound):
		writeError(w, logger, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrCurrencySeriesExists):
		writeError(w, logger, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, logger, http.StatusInternalServerError, "internal server error")
	}
}
