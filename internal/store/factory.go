// Package store selects the configured StockStore backend.
package store

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"TWStockHarvester/internal/config"
	"TWStockHarvester/internal/interfaces"
	"TWStockHarvester/internal/store/badger"
	"TWStockHarvester/internal/store/postgres"
	"TWStockHarvester/internal/store/sqlite"
)

// Open creates the store named by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (interfaces.StockStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendBadger:
		return badger.NewStore(logger, cfg.Storage.Badger.Path)
	case config.BackendSQLite:
		return sqlite.NewStore(logger, cfg.Storage.SQLite.Path)
	case config.BackendPostgres:
		return postgres.NewStore(ctx, logger, cfg.Storage.Postgres.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
