// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/bojops/internal/config"
	"github.com/aristath/bojops/internal/database"
	"github.com/aristath/bojops/internal/persistence"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the download cache and the operation store.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// client_data.db - Raw downloads, re-fetchable, so maximum speed
	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
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

	store, closer, err := persistence.Open(cfg.StoreFormat, cfg.StoreFile)
	if err != nil {
		cacheDB.Close()
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreFormat, err)
	}
	container.storeCloser = closer
	if db, ok := closer.(*database.DB); ok {
		container.OperationsDB = db
	}
	container.Store = persistence.NewBridge(store, log)

	log.Info().
		Str("cache", cfg.CacheDBPath()).
		Str("store", cfg.StoreFile).
		Str("format", cfg.StoreFormat).
		Msg("Databases initialized")
	return container, nil
}
