// Package di provides dependency injection type definitions.
//
// The Container holds every long-lived service. It is built once by Wire and
// passed to the server, which takes handlers' dependencies from it.
package di

import (
	"github.com/aristath/riskterm/internal/clients/objectstore"
	"github.com/aristath/riskterm/internal/database"
	"github.com/aristath/riskterm/internal/dataset"
	"github.com/aristath/riskterm/internal/events"
	"github.com/aristath/riskterm/internal/metrics"
	"github.com/aristath/riskterm/internal/modules/datasync"
	"github.com/aristath/riskterm/internal/modules/portfolio"
	"github.com/aristath/riskterm/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Database (nil when the persistent cache is disabled)
	CacheDB *database.DB

	// Infrastructure
	Metrics   *metrics.Registry
	EventBus  *events.Bus
	Scheduler *scheduler.Scheduler

	// Datasets
	DatasetCache *dataset.Cache
	Store        *dataset.Store

	// Clients (nil when no bucket is configured)
	ObjectStore *objectstore.Client

	// Services
	SyncService      *datasync.Service
	PortfolioService *portfolio.Service
	Scenarios        *portfolio.ScenarioSet
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	DatasetSync scheduler.Job
}

// Close releases the container's resources
func (c *Container) Close() error {
	if c.CacheDB != nil {
		return c.CacheDB.Close()
	}
	return nil
}
