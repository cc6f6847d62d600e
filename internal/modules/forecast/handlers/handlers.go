// Package handlers provides HTTP handlers for the ML volatility forecasts.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/riskterm/internal/domain"
	"github.com/aristath/riskterm/internal/modules/forecast"
)

// Source provides the forecast table
type Source interface {
	Forecasts() ([]domain.Forecast, error)
}

// Handler handles forecast HTTP requests
type Handler struct {
	source Source
	log    zerolog.Logger
}

// NewHandler creates a new forecast handler
func NewHandler(source Source, log zerolog.Logger) *Handler {
	return &Handler{
		source: source,
		log:    log.With().Str("handler", "forecast").Logger(),
	}
}

func (h *Handler) analyzer(w http.ResponseWriter) (*forecast.Analyzer, bool) {
	rows, err := h.source.Forecasts()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load forecasts")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return forecast.NewAnalyzer(rows), true
}

// HandleGetRanking handles GET /api/forecasts
func (h *Handler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analyzer(w)
	if !ok {
		return
	}
	ranking := a.Ranking()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"forecasts": ranking,
			"count":     len(ranking),
		},
		"metadata": metadata(),
	})
}

// HandleGetUncertainty handles GET /api/forecasts/uncertainty?n=15
func (h *Handler) HandleGetUncertainty(w http.ResponseWriter, r *http.Request) {
	n, err := intQuery(r, "n", forecast.DefaultUncertaintyLeaders, 1, 500)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a, ok := h.analyzer(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"leaders": a.UncertaintyLeaders(n),
		},
		"metadata": metadata(),
	})
}

// HandleGetRiskMap handles GET /api/forecasts/map
func (h *Handler) HandleGetRiskMap(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analyzer(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"points": a.RiskMap(),
		},
		"metadata": metadata(),
	})
}

// HandleGetAccuracy handles GET /api/forecasts/accuracy?bins=40&ticker=
func (h *Handler) HandleGetAccuracy(w http.ResponseWriter, r *http.Request) {
	bins, err := intQuery(r, "bins", forecast.DefaultAccuracyBins, 1, 500)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a, ok := h.analyzer(w)
	if !ok {
		return
	}

	acc, err := a.AccuracyHistogram(bins, r.URL.Query().Get("ticker"))
	if errors.Is(err, forecast.ErrUnknownTicker) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build accuracy histogram")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     acc,
		"metadata": metadata(),
	})
}

// HandleGetForecast handles GET /api/forecasts/{ticker}
func (h *Handler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	a, ok := h.analyzer(w)
	if !ok {
		return
	}

	v, err := a.Get(ticker)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     v,
		"metadata": metadata(),
	})
}

func metadata() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

func intQuery(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, errors.New("invalid " + name + ": must be an integer between " + strconv.Itoa(min) + " and " + strconv.Itoa(max))
	}
	return v, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
