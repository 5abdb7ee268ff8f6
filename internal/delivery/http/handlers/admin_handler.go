package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/LavaJover/shvark-currency-service/internal/app/background"
	"github.com/LavaJover/shvark-currency-service/internal/delivery/http/dto/exchange/response"
	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/LavaJover/shvark-currency-service/internal/usecase"
	currencydto "github.com/LavaJover/shvark-currency-service/internal/usecase/dto/currency"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"
	defaultRunsLimit    = 20
	maxRunsLimit        = 200
)

type AdminHandler struct {
	// appCtx outlives requests so scheduled follow-ups of a manual import
	// are not cancelled when the response is written.
	appCtx   context.Context
	runner   background.ImportRunner
	journal  domain.ImportRunLogger
	seriesUc usecase.CurrencySeriesUsecase
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAdminHandler(
	appCtx context.Context,
	runner background.ImportRunner,
	journal domain.ImportRunLogger,
	seriesUc usecase.CurrencySeriesUsecase,
	logger *slog.Logger,
) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		appCtx:   appCtx,
		runner:   runner,
		journal:  journal,
		seriesUc: seriesUc,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *AdminHandler) RegisterRoutes(router *mux.Router, middlewares ...mux.MiddlewareFunc) {
	admin := router.PathPrefix("/api/v1/admin").Subrouter()
	admin.Use(middlewares...)
	admin.HandleFunc("/exchange-rates/import", h.TriggerImport).Methods(http.MethodPost)
	admin.HandleFunc("/exchange-rates/import/runs", h.ListImportRuns).Methods(http.MethodGet)
	admin.HandleFunc("/currencies", h.ListCurrencies).Methods(http.MethodGet)
	admin.HandleFunc("/currencies", h.CreateCurrency).Methods(http.MethodPost)
	admin.HandleFunc("/currencies/{id:[0-9]+}", h.GetCurrency).Methods(http.MethodGet)
	admin.HandleFunc("/currencies/{id:[0-9]+}", h.UpdateCurrency).Methods(http.MethodPut)
}

func (h *AdminHandler) TriggerImport(w http.ResponseWriter, r *http.Request) {
	outcome := h.runner.Run(h.appCtx, domain.TriggerManual)
	h.logger.Info("manual exchange rate import requested", "outcome", outcome)

	status := http.StatusOK
	switch outcome {
	case background.OutcomeSkipped:
		status = http.StatusConflict
	case background.OutcomeRetrying:
		status = http.StatusAccepted
	case background.OutcomeAborted, background.OutcomeExhausted:
		status = http.StatusBadGateway
	}
	writeJSON(w, h.logger, status, response.ImportTriggerResponse{Outcome: string(outcome)})
}

func (h *AdminHandler) ListImportRuns(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, h.logger, http.StatusNotFound, "import journal disabled")
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxRunsLimit {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	runs, err := h.journal.RecentRuns(r.Context(), limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, response.FromImportRuns(runs))
}

func (h *AdminHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"
	series, err := h.seriesUc.List(r.Context(), enabledOnly)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, series)
}

func (h *AdminHandler) CreateCurrency(w http.ResponseWriter, r *http.Request) {
	var input currencydto.CreateCurrencySeriesInput
	if !h.decode(w, r, &input) {
		return
	}

	correlationID := r.Header.Get(CorrelationIDHeader)
	if correlationID == "" {
		correlationID = usecase.NewCorrelationID()
	}

	output, err := h.seriesUc.Create(r.Context(), &input, correlationID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.Header().Set(CorrelationIDHeader, correlationID)
	writeJSON(w, h.logger, http.StatusCreated, output)
}

func (h *AdminHandler) GetCurrency(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	output, err := h.seriesUc.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, output)
}

func (h *AdminHandler) UpdateCurrency(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var input currencydto.UpdateCurrencySeriesInput
	if !h.decode(w, r, &input) {
		return
	}

	output, err := h.seriesUc.Update(r.Context(), id, &input)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, output)
}

func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request, input any) bool {
	if err := json.NewDecoder(r.Body).Decode(input); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(input); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *AdminHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, h.logger, http.StatusBadRequest, "invalid currency id")
		return 0, false
	}
	return id, true
}
