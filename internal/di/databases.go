package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/riskterm/internal/config"
	"github.com/aristath/riskterm/internal/database"
)

// InitializeDatabases opens and migrates the cache database. The database
// also holds the object store sync state, so it is opened whenever the
// persistent cache or a bucket is enabled.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	if !cfg.PersistCache && !cfg.ObjectStore.Enabled() {
		log.Info().Msg("Persistent cache disabled, running in memory")
		return container, nil
	}

	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath,
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}

	if err := cacheDB.Migrate(); err != nil {
		cacheDB.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}
	container.CacheDB = cacheDB

	log.Info().Str("path", cacheDB.Path()).Msg("Cache database ready")
	return container, nil
}
