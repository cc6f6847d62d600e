// Package handlers provides HTTP handlers for stock-level risk analytics.
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
	"github.com/aristath/riskterm/internal/modules/stocks"
)

// Source provides the stock risk summary table
type Source interface {
	StockRisk() ([]domain.StockRisk, error)
}

// Handler handles stock risk HTTP requests
type Handler struct {
	source Source
	log    zerolog.Logger
}

// NewHandler creates a new stocks handler
func NewHandler(source Source, log zerolog.Logger) *Handler {
	return &Handler{
		source: source,
		log:    log.With().Str("handler", "stocks").Logger(),
	}
}

func (h *Handler) analyzer(w http.ResponseWriter) (*stocks.Analyzer, bool) {
	rows, err := h.source.StockRisk()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load stock risk summary")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return stocks.NewAnalyzer(rows), true
}

// HandleGetStocks handles GET /api/stocks
func (h *Handler) HandleGetStocks(w http.ResponseWriter, r *http.Request) {
	bands, err := stocks.ParseCategories(r.URL.Query().Get("bands"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a, ok := h.analyzer(w)
	if !ok {
		return
	}

	profiles := a.Filter(bands...)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"stocks":        profiles,
			"count":         len(profiles),
			"universe_size": a.Len(),
			"bands":         bands,
		},
		"metadata": metadata(),
	})
}

// HandleGetSummary handles GET /api/stocks/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analyzer(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     a.Summary(),
		"metadata": metadata(),
	})
}

// HandleGetExtremes handles GET /api/stocks/extremes?n=10
func (h *Handler) HandleGetExtremes(w http.ResponseWriter, r *http.Request) {
	n, err := intQuery(r, "n", 10, 1, 500)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a, ok := h.analyzer(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     a.Extremes(n),
		"metadata": metadata(),
	})
}

// HandleGetLandscape handles GET /api/stocks/landscape
func (h *Handler) HandleGetLandscape(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analyzer(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"points": a.Landscape(),
		},
		"metadata": metadata(),
	})
}

// HandleGetHistogram handles GET /api/stocks/histogram?bins=40
func (h *Handler) HandleGetHistogram(w http.ResponseWriter, r *http.Request) {
	bins, err := intQuery(r, "bins", 40, 1, 500)
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
			"bins": a.Histogram(bins),
		},
		"metadata": metadata(),
	})
}

// HandleGetStock handles GET /api/stocks/{ticker}
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	a, ok := h.analyzer(w)
	if !ok {
		return
	}

	profile, err := a.Profile(ticker)
	if errors.Is(err, stocks.ErrUnknownTicker) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to build stock profile")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     profile,
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
