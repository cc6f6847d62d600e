// Package handlers provides HTTP handlers for portfolio risk analytics.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/riskterm/internal/modules/portfolio"
)

// DefaultContributionTop is the number of contributors charted by default
const DefaultContributionTop = 15

// Handler handles portfolio HTTP requests
type Handler struct {
	service   *portfolio.Service
	smaWindow int
	log       zerolog.Logger
}

// NewHandler creates a new portfolio handler. smaWindow is the default
// volatility trend window when the request does not name one.
func NewHandler(service *portfolio.Service, smaWindow int, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		smaWindow: smaWindow,
		log:       log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetOverview returns the headline portfolio metrics
func (h *Handler) HandleGetOverview(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Overview()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute portfolio overview")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeData(w, o)
}

// HandleGetAllocation returns holdings ordered by weight
func (h *Handler) HandleGetAllocation(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Allocation()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load allocation")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeData(w, map[string]interface{}{
		"holdings": rows,
		"count":    len(rows),
	})
}

// HandleGetCorrelation returns the correlation heatmap and diagnostics
func (h *Handler) HandleGetCorrelation(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Correlation()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load correlation matrix")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeData(w, view)
}

// HandleGetVolatility returns the volatility trend with an SMA overlay
func (h *Handler) HandleGetVolatility(w http.ResponseWriter, r *http.Request) {
	window, ok := h.intParam(w, r, "sma", h.smaWindow, 1, 250)
	if !ok {
		return
	}

	trend, err := h.service.VolatilityTrend(window)
	if err != nil {
		h.log.Error().Err(err).Int("window", window).Msg("Failed to compute volatility trend")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeData(w, trend)
}

// HandleGetContribution returns the risk attribution; ?top=15 limits the chart series
func (h *Handler) HandleGetContribution(w http.ResponseWriter, r *http.Request) {
	top, ok := h.intParam(w, r, "top", DefaultContributionTop, 1, 500)
	if !ok {
		return
	}

	a, err := h.service.Contribution()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute risk contribution")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeData(w, map[string]interface{}{
		"portfolio_volatility": a.PortfolioVolatility,
		"defined":              a.Defined,
		"top_driver":           a.TopDriver,
		"concentration_pct":    a.Concentration,
		"top":                  a.Top(top),
		"rows":                 a.Rows,
	})
}

// HandleGetStress returns the stress scenario results
func (h *Handler) HandleGetStress(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, h.service.Stress())
}

func (h *Handler) intParam(w http.ResponseWriter, r *http.Request, name string, def, min, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		h.writeError(w, http.StatusBadRequest, "invalid "+name+": must be an integer between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
		return 0, false
	}
	return v, true
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
