// Package handlers serves the volatility regime page: the labelled timeline
// alongside the portfolio's risk attribution.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/riskterm/internal/domain"
	"github.com/aristath/riskterm/internal/modules/portfolio"
	"github.com/aristath/riskterm/internal/modules/regime"
)

// DefaultContributionTop is the number of contributors shown next to the timeline
const DefaultContributionTop = 15

// SeriesSource provides the portfolio volatility series
type SeriesSource interface {
	Volatility() ([]domain.VolatilityObservation, error)
}

// Attributor computes the portfolio risk attribution
type Attributor interface {
	Contribution() (*portfolio.Attribution, error)
}

// RegimeRecorder publishes the current regime
type RegimeRecorder interface {
	SetRegime(label string)
}

// Handler handles regime HTTP requests
type Handler struct {
	series     SeriesSource
	attributor Attributor
	recorder   RegimeRecorder
	log        zerolog.Logger
}

// NewHandler creates a new regime handler. attributor and recorder may be nil.
func NewHandler(series SeriesSource, attributor Attributor, recorder RegimeRecorder, log zerolog.Logger) *Handler {
	return &Handler{
		series:     series,
		attributor: attributor,
		recorder:   recorder,
		log:        log.With().Str("handler", "regime").Logger(),
	}
}

// HandleGetRegime handles GET /api/regime?method=retrospective|expanding&top=15
func (h *Handler) HandleGetRegime(w http.ResponseWriter, r *http.Request) {
	method, err := regime.ParseMethod(r.URL.Query().Get("method"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	top := DefaultContributionTop
	if raw := r.URL.Query().Get("top"); raw != "" {
		top, err = strconv.Atoi(raw)
		if err != nil || top < 1 {
			http.Error(w, "invalid top: must be a positive integer", http.StatusBadRequest)
			return
		}
	}

	series, err := h.series.Volatility()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load volatility series")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result, err := regime.Classify(series, method)
	if err != nil {
		h.log.Error().Err(err).Str("method", string(method)).Msg("Failed to classify regimes")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if h.recorder != nil && method == regime.MethodRetrospective {
		h.recorder.SetRegime(string(result.Current))
	}

	data := map[string]interface{}{
		"method":          result.Method,
		"look_ahead_bias": result.LookAheadBias,
		"thresholds":      result.Thresholds,
		"timeline":        result.Observations,
		"counts":          result.Counts,
		"distribution":    result.Distribution(),
		"current":         result.Current,
		"latest":          result.Latest(),
	}

	// The timeline stands on its own; a missing weights table only drops the attribution.
	if h.attributor != nil {
		a, err := h.attributor.Contribution()
		if err != nil {
			h.log.Warn().Err(err).Msg("Risk attribution unavailable for regime page")
		} else {
			data["contribution"] = map[string]interface{}{
				"defined":           a.Defined,
				"top_driver":        a.TopDriver,
				"concentration_pct": a.Concentration,
				"top":               a.Top(top),
				"rows":              a.Rows,
			}
		}
	}

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
