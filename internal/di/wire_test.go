package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riskterm/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		DataDir:         dir,
		CacheDBPath:     filepath.Join(dir, "cache.db"),
		PersistCache:    true,
		LogLevel:        "info",
		Port:            8080,
		SyncSchedule:    "@every 15m",
		SMAWindow:       20,
		ShutdownTimeout: 5 * time.Second,
	}
}

func TestWire(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	t.Run("persistent cache", func(t *testing.T) {
		cfg := testConfig(t)
		container, jobs, err := Wire(context.Background(), cfg, log)
		require.NoError(t, err)
		defer container.Close()

		assert.NotNil(t, container.CacheDB)
		assert.NotNil(t, container.Metrics)
		assert.NotNil(t, container.EventBus)
		assert.NotNil(t, container.Store)
		assert.NotNil(t, container.SyncService)
		assert.NotNil(t, container.PortfolioService)
		assert.Nil(t, container.ObjectStore)
		assert.Len(t, container.Scenarios.Scenarios, 4)

		require.NotNil(t, jobs.DatasetSync)
		assert.Equal(t, "dataset_sync", jobs.DatasetSync.Name())
		status := container.Scheduler.Status()
		require.Len(t, status, 1)
		assert.Equal(t, "@every 15m", status[0].Schedule)

		_, err = os.Stat(cfg.CacheDBPath)
		assert.NoError(t, err)
	})

	t.Run("in memory", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.PersistCache = false
		container, _, err := Wire(context.Background(), cfg, log)
		require.NoError(t, err)
		defer container.Close()

		assert.Nil(t, container.CacheDB)
		_, err = os.Stat(cfg.CacheDBPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("object store enabled", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.PersistCache = false
		cfg.ObjectStore = config.ObjectStoreConfig{
			Bucket:          "risk-exports",
			Region:          "auto",
			Endpoint:        "http://127.0.0.1:9000",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
		}
		container, _, err := Wire(context.Background(), cfg, log)
		require.NoError(t, err)
		defer container.Close()

		// sync state lives in the cache database
		assert.NotNil(t, container.CacheDB)
		require.NotNil(t, container.ObjectStore)
		assert.Equal(t, "risk-exports", container.ObjectStore.Bucket())
	})

	t.Run("bad scenarios file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ScenariosFile = filepath.Join(cfg.DataDir, "missing.yaml")
		_, _, err := Wire(context.Background(), cfg, log)
		assert.Error(t, err)
	})

	t.Run("bad schedule", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.SyncSchedule = "not a schedule"
		_, _, err := Wire(context.Background(), cfg, log)
		assert.Error(t, err)
	})
}
