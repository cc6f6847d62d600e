package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/riskterm/internal/modules/datasync"
)

// DatasetSyncName is the registered name of the dataset sync job
const DatasetSyncName = "dataset_sync"

// Syncer runs one dataset sync
type Syncer interface {
	Run(ctx context.Context) (*datasync.Result, error)
}

// DatasetSyncJob refreshes the dataset directory
type DatasetSyncJob struct {
	syncer  Syncer
	timeout time.Duration
	log     zerolog.Logger
}

// NewDatasetSyncJob creates a new DatasetSyncJob. Each run is bounded by timeout.
func NewDatasetSyncJob(syncer Syncer, timeout time.Duration, log zerolog.Logger) *DatasetSyncJob {
	return &DatasetSyncJob{
		syncer:  syncer,
		timeout: timeout,
		log:     log.With().Str("job", DatasetSyncName).Logger(),
	}
}

// Name returns the job name
func (j *DatasetSyncJob) Name() string {
	return DatasetSyncName
}

// Run executes one sync. A sync already in flight is skipped, not failed.
func (j *DatasetSyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	res, err := j.syncer.Run(ctx)
	if errors.Is(err, datasync.ErrSyncInProgress) {
		j.log.Warn().Msg("Dataset sync already running, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	if len(res.Changes) > 0 {
		j.log.Info().Int("changed", len(res.Changes)).Msg("Dataset files changed")
	}
	return nil
}
