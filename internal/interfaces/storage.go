// Package interfaces holds the contracts shared between the harvester and
// its storage backends.
package interfaces

import (
	"context"
	"errors"

	"TWStockHarvester/internal/model"
)

var (
	// ErrNotFound is returned when no aggregate exists for a ticker.
	ErrNotFound = errors.New("stock not found")
	// ErrExists is returned when inserting a ticker that is already stored.
	ErrExists = errors.New("stock already exists")
)

// Indexable fields for CreateIndex.
const (
	IndexTicker = "ticker"
	IndexMarket = "market"
)

// StockStore persists one aggregate per ticker.
type StockStore interface {
	// FindByTicker returns the stored aggregate or ErrNotFound.
	FindByTicker(ctx context.Context, ticker string) (*model.Stock, error)
	// InsertStock stores a new aggregate with any records it carries.
	InsertStock(ctx context.Context, stock *model.Stock) error
	// AppendDailyBars adds bars whose date is not yet stored and returns how
	// many were added. The aggregate is created when absent.
	AppendDailyBars(ctx context.Context, ticker string, bars []model.DailyBar) (int, error)
	// AppendIncomeStatements is AppendDailyBars keyed by (year, season).
	AppendIncomeStatements(ctx context.Context, ticker string, stmts []model.IncomeStatement) (int, error)
	// CreateIndex ensures an index on field exists. It is idempotent.
	CreateIndex(ctx context.Context, field string) error
	Close() error
}
