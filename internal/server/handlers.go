package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/aristath/riskterm/internal/domain"
)

// version is overridden at build time with -ldflags
var version = "dev"

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": version,
		"service": "riskterm",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// UniverseEntry is a tracked ticker with its company name
type UniverseEntry struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// handleUniverse lists the ticker universe sorted by ticker
func (s *Server) handleUniverse(w http.ResponseWriter, r *http.Request) {
	entries := make([]UniverseEntry, 0, len(domain.Universe))
	for ticker, name := range domain.Universe {
		entries = append(entries, UniverseEntry{Ticker: ticker, Name: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Ticker < entries[j].Ticker })

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"tickers": entries,
			"count":   len(entries),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
