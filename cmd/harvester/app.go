package main

import (
	"context"
	"fmt"
	"net/http"

	"TWStockHarvester/internal/collector"
	"TWStockHarvester/internal/config"
	"TWStockHarvester/internal/harvester"
	"TWStockHarvester/internal/interfaces"
	"TWStockHarvester/internal/store"
)

// app holds the collaborators of one command invocation.
type app struct {
	store     interfaces.StockStore
	listing   *collector.ListingFetcher
	harvester *harvester.Harvester
}

func fetcherOpts(client *http.Client, baseURL string, extra ...collector.Option) []collector.Option {
	opts := []collector.Option{collector.WithHTTPClient(client), collector.WithLogger(logger)}
	if baseURL != "" {
		opts = append(opts, collector.WithBaseURL(baseURL))
	}
	return append(opts, extra...)
}

func statementFetcher(client *http.Client, source string) (collector.StatementFetcher, error) {
	switch source {
	case config.SourceFinMind:
		return collector.NewFinMindFetcher(cfg.Sources.FinMind.Token, fetcherOpts(client, cfg.Sources.FinMind.BaseURL)...), nil
	case config.SourceMOPS:
		return collector.NewMOPSFetcher(cfg.Sources.MOPS.LegacyURL,
			fetcherOpts(client, cfg.Sources.MOPS.IFRSURL, collector.WithInterval(cfg.Sources.MOPS.Interval))...), nil
	default:
		return nil, fmt.Errorf("unknown statement source %q", source)
	}
}

// newApp opens the store and builds the fetchers. statementSource overrides
// the configured source when not empty.
func newApp(ctx context.Context, statementSource string) (*app, error) {
	client := collector.NewHTTPClient(cfg.Proxy, cfg.Sources.Timeout)

	if statementSource == "" {
		statementSource = cfg.Statements.Source
	}
	statements, err := statementFetcher(client, statementSource)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	listing := collector.NewListingFetcher(cfg.Sources.Listing.PrimaryURL, cfg.Sources.Listing.OTCURL, fetcherOpts(client, "")...)
	bars := collector.NewYahooFetcher(cfg.Sources.Yahoo.Crumb, fetcherOpts(client, cfg.Sources.Yahoo.BaseURL)...)

	h := harvester.New(st, listing, bars,
		harvester.WithStatementFetcher(statements),
		harvester.WithLogger(logger),
		harvester.WithRetryPolicy(harvester.RetryPolicy{
			Attempts:         cfg.Retry.Attempts,
			Backoff:          cfg.Retry.Backoff,
			RateLimitBackoff: cfg.Retry.RateLimitBackoff,
			RateLimitFatal:   cfg.Retry.RateLimitFatal,
		}),
	)

	logger.Info().Str("storage", cfg.Storage.Backend).Str("bars", bars.Name()).Str("statements", statements.Name()).Msg("Harvester ready")
	return &app{store: st, listing: listing, harvester: h}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn().Err(err).Msg("Close store")
	}
}
