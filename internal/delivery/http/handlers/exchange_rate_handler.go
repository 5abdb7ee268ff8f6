package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/delivery/http/dto/exchange/response"
	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/LavaJover/shvark-currency-service/internal/usecase"
	"github.com/gorilla/mux"
)

// Without startDate the last thirty days are returned.
const defaultRangeDays = 30

type ExchangeRateHandler struct {
	queryUc usecase.ExchangeRateQueryUsecase
	logger  *slog.Logger
	now     func() time.Time
}

func NewExchangeRateHandler(queryUc usecase.ExchangeRateQueryUsecase, logger *slog.Logger) *ExchangeRateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExchangeRateHandler{queryUc: queryUc, logger: logger, now: time.Now}
}

func (h *ExchangeRateHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/exchange-rates", h.GetRates).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/exchange-rates/latest", h.GetLatestRate).Methods(http.MethodGet)
}

func (h *ExchangeRateHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	target := strings.ToUpper(query.Get("targetCurrency"))
	if target == "" {
		writeError(w, h.logger, http.StatusBadRequest, "targetCurrency is required")
		return
	}

	end := domain.NormalizeDate(h.now())
	if raw := query.Get("endDate"); raw != "" {
		parsed, err := domain.ParseDate(raw)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "endDate must be YYYY-MM-DD")
			return
		}
		end = parsed
	}
	start := end.AddDate(0, 0, -defaultRangeDays)
	if raw := query.Get("startDate"); raw != "" {
		parsed, err := domain.ParseDate(raw)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
			return
		}
		start = parsed
	}

	rates, err := h.queryUc.GetRates(r.Context(), target, start, end)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, response.ExchangeRatesResponse{
		BaseCurrency:   domain.BaseCurrency,
		TargetCurrency: target,
		StartDate:      start.Format(domain.DateLayout),
		EndDate:        end.Format(domain.DateLayout),
		Rates:          response.FromExchangeRates(rates),
	})
}

func (h *ExchangeRateHandler) GetLatestRate(w http.ResponseWriter, r *http.Request) {
	target := strings.ToUpper(r.URL.Query().Get("targetCurrency"))
	if target == "" {
		writeError(w, h.logger, http.StatusBadRequest, "targetCurrency is required")
		return
	}

	rate, err := h.queryUc.GetLatestRate(r.Context(), target)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if rate == nil {
		writeError(w, h.logger, http.StatusNotFound, "no exchange rate stored for "+target)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, response.FromExchangeRate(rate))
}
