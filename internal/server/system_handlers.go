package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/riskterm/internal/database"
	"github.com/aristath/riskterm/internal/dataset"
	"github.com/aristath/riskterm/internal/di"
	"github.com/aristath/riskterm/internal/modules/datasync"
	"github.com/aristath/riskterm/internal/scheduler"
)

// SystemHandlers serves host and dataset status and manual sync triggers
type SystemHandlers struct {
	container *di.Container
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(container *di.Container, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		container: container,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// DatasetStatus is a dataset file with its age
type DatasetStatus struct {
	dataset.FileStatus
	AgeSeconds int64 `json:"age_seconds,omitempty"`
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status        string                `json:"status"` // "healthy" or "degraded"
	Version       string                `json:"version"`
	StartedAt     time.Time             `json:"started_at"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	CPUPercent    float64               `json:"cpu_percent"`
	MemoryPercent float64               `json:"memory_percent"`
	DataDir       string                `json:"data_dir"`
	Datasets      []DatasetStatus       `json:"datasets"`
	Cache         dataset.CacheStats    `json:"cache"`
	CacheDB       *database.Stats       `json:"cache_db,omitempty"`
	CacheDBError  string                `json:"cache_db_error,omitempty"`
	Bucket        string                `json:"bucket,omitempty"`
	Jobs          []scheduler.JobStatus `json:"jobs"`
	LastSync      *datasync.Result      `json:"last_sync,omitempty"`
}

// GetSystemStatusSnapshot collects the current status. A non-nil error means
// some sections could not be filled; the response is still usable.
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) (*SystemStatusResponse, error) {
	now := time.Now()
	cpuPercent, memPercent := h.getSystemStats()

	resp := &SystemStatusResponse{
		Status:        "healthy",
		Version:       version,
		StartedAt:     h.startedAt,
		UptimeSeconds: int64(now.Sub(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		DataDir:       h.container.Store.Dir(),
		Cache:         h.container.DatasetCache.Stats(),
		Jobs:          h.container.Scheduler.Status(),
		LastSync:      h.container.SyncService.LastResult(),
	}
	if h.container.ObjectStore != nil {
		resp.Bucket = h.container.ObjectStore.Bucket()
	}

	var errs []error

	files, err := h.container.Store.Fingerprints()
	if err != nil {
		errs = append(errs, err)
		resp.Status = "degraded"
	}
	resp.Datasets = make([]DatasetStatus, 0, len(files))
	for _, f := range files {
		st := DatasetStatus{FileStatus: f}
		if f.Exists {
			st.AgeSeconds = int64(now.Sub(f.ModTime).Seconds())
		} else {
			resp.Status = "degraded"
		}
		resp.Datasets = append(resp.Datasets, st)
	}

	if h.container.CacheDB != nil {
		if err := h.container.CacheDB.QuickCheck(ctx); err != nil {
			errs = append(errs, err)
			resp.CacheDBError = err.Error()
			resp.Status = "degraded"
		} else if stats, err := h.container.CacheDB.GetStats(); err != nil {
			errs = append(errs, err)
		} else {
			resp.CacheDB = stats
		}
	}

	return resp, errors.Join(errs...)
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response, err := h.GetSystemStatusSnapshot(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("System status collected with warnings")
	}

	h.writeJSON(w, http.StatusOK, response)
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// Sample over 100ms so the status call stays fast
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// HandleTriggerSync runs the dataset sync synchronously and returns its result
func (h *SystemHandlers) HandleTriggerSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.log.Info().Msg("Manual dataset sync triggered")

	result, err := h.container.SyncService.Run(r.Context())
	switch {
	case errors.Is(err, datasync.ErrSyncInProgress):
		h.writeJSON(w, http.StatusConflict, map[string]string{
			"status":  "error",
			"message": "Dataset sync already running",
		})
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Manual dataset sync failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Dataset sync completed",
		"data":    result,
	})
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
