package collector

import (
	"context"

	"TWStockHarvester/internal/model"
)

// BarFetcher fetches daily bars for one ticker over an inclusive date window.
type BarFetcher interface {
	FetchDailyBars(ctx context.Context, entry model.ListingEntry, r model.DateRange) ([]model.DailyBar, error)
	Name() string
}

// StatementFetcher fetches income statements for one ticker over an
// inclusive season window.
type StatementFetcher interface {
	FetchIncomeStatements(ctx context.Context, entry model.ListingEntry, r model.PeriodRange) ([]model.IncomeStatement, error)
	Name() string
}

// ListingSource builds the run's ticker listing.
type ListingSource interface {
	FetchListing(ctx context.Context) (*model.Listing, error)
}
