package di

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/riskterm/internal/config"
	"github.com/aristath/riskterm/internal/scheduler"
)

// datasetSyncTimeout bounds one sync including downloads
const datasetSyncTimeout = 5 * time.Minute

// RegisterJobs registers the background jobs with the scheduler
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	jobs := &JobInstances{}

	datasetSync := scheduler.NewDatasetSyncJob(container.SyncService, datasetSyncTimeout, log)
	if err := container.Scheduler.AddJob(cfg.SyncSchedule, datasetSync); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", datasetSync.Name(), err)
	}
	jobs.DatasetSync = datasetSync

	return jobs, nil
}
