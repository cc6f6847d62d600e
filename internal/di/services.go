package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/riskterm/internal/clients/objectstore"
	"github.com/aristath/riskterm/internal/config"
	"github.com/aristath/riskterm/internal/dataset"
	"github.com/aristath/riskterm/internal/events"
	"github.com/aristath/riskterm/internal/metrics"
	"github.com/aristath/riskterm/internal/modules/datasync"
	"github.com/aristath/riskterm/internal/modules/portfolio"
	"github.com/aristath/riskterm/internal/scheduler"
)

// InitializeServices creates all services in dependency order
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.Metrics = metrics.NewRegistry()
	container.EventBus = events.NewBus(log)
	container.Scheduler = scheduler.New(log)

	// Dataset cache: memory, plus SQLite when enabled
	cacheOpts := []dataset.CacheOption{dataset.WithRecorder(container.Metrics)}
	if cfg.PersistCache && container.CacheDB != nil {
		cacheOpts = append(cacheOpts, dataset.WithPersistentTier(dataset.NewSQLiteTier(container.CacheDB, log)))
	}
	container.DatasetCache = dataset.NewCache(log, cacheOpts...)
	container.Store = dataset.NewStore(cfg.DataDir, container.DatasetCache, log)

	if cfg.ObjectStore.Enabled() {
		client, err := objectstore.New(ctx, objectstore.Config{
			Bucket:          cfg.ObjectStore.Bucket,
			Prefix:          cfg.ObjectStore.Prefix,
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
		}, objectstore.NewStateRepository(container.CacheDB.Conn()), log)
		if err != nil {
			return fmt.Errorf("failed to create object store client: %w", err)
		}
		container.ObjectStore = client
	}

	// A nil *objectstore.Client must not become a non-nil Downloader
	var downloader datasync.Downloader
	if container.ObjectStore != nil {
		downloader = container.ObjectStore
	}
	container.SyncService = datasync.NewService(container.Store, downloader, container.EventBus, container.Metrics, log)

	scenarios, err := portfolio.LoadScenarios(cfg.ScenariosFile)
	if err != nil {
		return err
	}
	container.Scenarios = scenarios
	container.PortfolioService = portfolio.NewService(container.Store, scenarios, log)

	log.Info().
		Bool("persistent_cache", cfg.PersistCache).
		Bool("object_store", container.ObjectStore != nil).
		Int("scenarios", len(scenarios.Scenarios)).
		Msg("Services initialized")
	return nil
}
