package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/domain"

	"github.com/rs/zerolog"
)

const maxResultsLimit = 100

// ResultsHandler serves recently finished games as JSON.
type ResultsHandler struct {
	results      app.ResultRepository
	defaultLimit int
	logger       zerolog.Logger
}

func NewResultsHandler(results app.ResultRepository, defaultLimit int, logger zerolog.Logger) *ResultsHandler {
	if defaultLimit <= 0 || defaultLimit > maxResultsLimit {
		defaultLimit = 20
	}
	return &ResultsHandler{results: results, defaultLimit: defaultLimit, logger: logger}
}

type resultsResponse struct {
	Results []domain.Result `json:"results"`
}

func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxResultsLimit)
	}

	results, err := h.results.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("load recent results")
		http.Error(w, "results unavailable", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []domain.Result{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resultsResponse{Results: results}); err != nil {
		h.logger.Debug().Err(err).Msg("write results response")
	}
}
