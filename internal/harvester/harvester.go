// Package harvester drives the per-ticker Lookup, Reconcile, Fetch and
// Persist loop for prices and income statements.
package harvester

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"TWStockHarvester/internal/collector"
	"TWStockHarvester/internal/common"
	"TWStockHarvester/internal/interfaces"
	"TWStockHarvester/internal/model"
	"TWStockHarvester/internal/reconcile"
)

// Summary reports one run.
type Summary struct {
	RunID    string
	Kind     string
	Tickers  int
	Skipped  int
	Inserted int
	Updated  int
	Records  int
	Elapsed  time.Duration
}

func (s *Summary) String() string {
	return fmt.Sprintf("%s run %s: %d tickers, %d skipped, %d inserted, %d updated, %d records in %s",
		s.Kind, s.RunID, s.Tickers, s.Skipped, s.Inserted, s.Updated, s.Records, s.Elapsed.Round(time.Millisecond))
}

// Run kinds.
const (
	KindPrices     = "prices"
	KindStatements = "statements"
)

// Harvester owns the collaborators for one process. Runs are sequential.
type Harvester struct {
	store      interfaces.StockStore
	listing    collector.ListingSource
	bars       collector.BarFetcher
	statements collector.StatementFetcher
	policy     RetryPolicy
	logger     arbor.ILogger
	now        func() time.Time
	sleep      sleepFunc
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(h *Harvester) { h.policy = p }
}

// WithLogger sets a logger.
func WithLogger(l arbor.ILogger) Option {
	return func(h *Harvester) { h.logger = l }
}

// WithClock sets the source of "today" for latest-mode runs.
func WithClock(now func() time.Time) Option {
	return func(h *Harvester) { h.now = now }
}

// WithStatementFetcher sets the income statement source.
func WithStatementFetcher(f collector.StatementFetcher) Option {
	return func(h *Harvester) { h.statements = f }
}

func withSleep(s sleepFunc) Option {
	return func(h *Harvester) { h.sleep = s }
}

// New creates a Harvester. A nil bar fetcher or statement fetcher disables
// the corresponding run kind.
func New(store interfaces.StockStore, listing collector.ListingSource, bars collector.BarFetcher, opts ...Option) *Harvester {
	h := &Harvester{
		store:   store,
		listing: listing,
		bars:    bars,
		policy:  DefaultRetryPolicy,
		now:     func() time.Time { return time.Now().In(model.Taipei) },
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = common.NewSilentLogger()
	}
	return h
}

// tickerJob harvests one ticker given its stored aggregate (nil when absent).
// It returns the number of records persisted and whether the aggregate was new;
// skipped is true when nothing needed fetching.
type tickerJob func(ctx context.Context, logger arbor.ILogger, e model.ListingEntry, stored *model.Stock) (outcome, error)

type outcome struct {
	skipped  bool
	inserted bool
	records  int
}

// HarvestPrices brings every listed ticker's daily bars up to req.
// tickers restricts the run to those codes when not empty.
func (h *Harvester) HarvestPrices(ctx context.Context, req reconcile.DateRequest, tickers ...string) (*Summary, error) {
	if h.bars == nil {
		return nil, errors.New("no bar fetcher configured")
	}
	if _, err := reconcile.Dates(req, nil, h.now()); err != nil && !errors.Is(err, reconcile.ErrNoBaseline) {
		return nil, fmt.Errorf("price request: %w", err)
	}
	return h.run(ctx, KindPrices, tickers, func(ctx context.Context, logger arbor.ILogger, e model.ListingEntry, stored *model.Stock) (outcome, error) {
		windows, err := reconcile.Dates(req, stored.BarDates(), h.now())
		if errors.Is(err, reconcile.ErrNoBaseline) {
			logger.Warn().Str("ticker", e.Ticker).Msg("No stored bars and no start date; skipping latest run")
			return outcome{skipped: true}, nil
		}
		if err != nil {
			return outcome{}, err
		}
		if len(windows) == 0 {
			return outcome{skipped: true}, nil
		}

		var bars []model.DailyBar
		for _, w := range windows {
			logger.Debug().Str("ticker", e.Ticker).Str("window", w.String()).Msg("Fetching bars")
			got, err := h.bars.FetchDailyBars(ctx, e, w)
			if err != nil {
				return outcome{}, err
			}
			bars = append(bars, got...)
		}
		return h.persist(ctx, e, stored,
			func(s *model.Stock) int { return s.MergeDailyBars(bars) },
			func() (int, error) { return h.store.AppendDailyBars(ctx, e.Ticker, bars) },
		)
	})
}

// HarvestStatements brings every listed ticker's income statements up to req.
func (h *Harvester) HarvestStatements(ctx context.Context, req reconcile.PeriodRequest, tickers ...string) (*Summary, error) {
	if h.statements == nil {
		return nil, errors.New("no statement fetcher configured")
	}
	if _, err := reconcile.Periods(req, nil, h.now()); err != nil && !errors.Is(err, reconcile.ErrNoBaseline) {
		return nil, fmt.Errorf("statement request: %w", err)
	}
	return h.run(ctx, KindStatements, tickers, func(ctx context.Context, logger arbor.ILogger, e model.ListingEntry, stored *model.Stock) (outcome, error) {
		windows, err := reconcile.Periods(req, stored.StatementPeriods(), h.now())
		if errors.Is(err, reconcile.ErrNoBaseline) {
			logger.Warn().Str("ticker", e.Ticker).Msg("No stored statements and no start period; skipping latest run")
			return outcome{skipped: true}, nil
		}
		if err != nil {
			return outcome{}, err
		}
		if len(windows) == 0 {
			return outcome{skipped: true}, nil
		}

		var stmts []model.IncomeStatement
		for _, w := range windows {
			logger.Debug().Str("ticker", e.Ticker).Str("window", w.String()).Str("source", h.statements.Name()).Msg("Fetching statements")
			got, err := h.statements.FetchIncomeStatements(ctx, e, w)
			if err != nil {
				return outcome{}, err
			}
			stmts = append(stmts, got...)
		}
		return h.persist(ctx, e, stored,
			func(s *model.Stock) int { return s.MergeIncomeStatements(stmts) },
			func() (int, error) { return h.store.AppendIncomeStatements(ctx, e.Ticker, stmts) },
		)
	})
}

// persist inserts a new aggregate when the ticker was not stored, and
// appends distinct records otherwise. An insert that loses a race with
// another writer falls back to append.
func (h *Harvester) persist(ctx context.Context, e model.ListingEntry, stored *model.Stock, merge func(*model.Stock) int, appendFn func() (int, error)) (outcome, error) {
	if stored == nil {
		stock := model.NewStock(e)
		n := merge(stock)
		err := h.store.InsertStock(ctx, stock)
		if err == nil {
			return outcome{inserted: true, records: n}, nil
		}
		if !errors.Is(err, interfaces.ErrExists) {
			return outcome{}, err
		}
	}
	n, err := appendFn()
	if err != nil {
		return outcome{}, err
	}
	return outcome{records: n}, nil
}

func (h *Harvester) run(ctx context.Context, kind string, tickers []string, job tickerJob) (*Summary, error) {
	started := time.Now()
	summary := &Summary{RunID: uuid.New().String(), Kind: kind}
	logger := h.logger.WithCorrelationId(summary.RunID)

	listing, err := h.listing.FetchListing(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	if len(tickers) > 0 {
		var missing []string
		listing, missing = listing.Filter(tickers)
		if len(missing) > 0 {
			logger.Warn().Strs("tickers", missing).Msg("Requested tickers are not listed")
		}
	}
	logger.Info().Str("kind", kind).Int("tickers", listing.Len()).Msg("Harvest started")

	for _, e := range listing.Entries() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		var result outcome
		err := retry(ctx, logger, h.policy, h.sleep, e.Ticker, func(attempt int) error {
			stored, err := h.store.FindByTicker(ctx, e.Ticker)
			if errors.Is(err, interfaces.ErrNotFound) {
				stored, err = nil, nil
			}
			if err != nil {
				return fmt.Errorf("lookup: %w", err)
			}
			result, err = job(ctx, logger, e, stored)
			return err
		})
		if err != nil {
			summary.Elapsed = time.Since(started)
			logger.Error().Err(err).Str("ticker", e.Ticker).Msg("Harvest aborted")
			return summary, err
		}

		summary.Tickers++
		switch {
		case result.skipped:
			summary.Skipped++
			logger.Debug().Str("ticker", e.Ticker).Msg("Already covered")
		case result.inserted:
			summary.Inserted++
		default:
			summary.Updated++
		}
		summary.Records += result.records
		if !result.skipped {
			logger.Info().Str("ticker", e.Ticker).Int("records", result.records).Bool("new", result.inserted).Msg("Ticker harvested")
		}
	}

	summary.Elapsed = time.Since(started)
	logger.Info().Str("summary", summary.String()).Msg("Harvest finished")
	return summary, nil
}
