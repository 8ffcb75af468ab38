// Package badger stores stock aggregates as badgerhold documents keyed by ticker.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"TWStockHarvester/internal/interfaces"
	"TWStockHarvester/internal/model"
)

// stockDocument is the persisted form of model.Stock.
type stockDocument struct {
	Ticker           string `badgerhold:"key"`
	Name             string
	Sector           string
	Market           string `badgerholdIndex:"Market"`
	DailyBars        []model.DailyBar
	IncomeStatements []model.IncomeStatement
}

func toDocument(s *model.Stock) *stockDocument {
	return &stockDocument{
		Ticker:           s.Ticker,
		Name:             s.Name,
		Sector:           s.Sector,
		Market:           string(s.Market),
		DailyBars:        s.DailyBars,
		IncomeStatements: s.IncomeStatements,
	}
}

func (d *stockDocument) toModel() *model.Stock {
	return &model.Stock{
		Ticker:           d.Ticker,
		Name:             d.Name,
		Sector:           d.Sector,
		Market:           model.Market(d.Market),
		DailyBars:        d.DailyBars,
		IncomeStatements: d.IncomeStatements,
	}
}

// Store implements interfaces.StockStore on badgerhold.
type Store struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	path   string
}

// NewStore opens (or creates) the badger database at path.
func NewStore(logger arbor.ILogger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Badger store opened")
	return &Store{store: store, logger: logger, path: path}, nil
}

func (s *Store) FindByTicker(_ context.Context, ticker string) (*model.Stock, error) {
	var doc stockDocument
	if err := s.store.Get(ticker, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", ticker, err)
	}
	return doc.toModel(), nil
}

func (s *Store) InsertStock(_ context.Context, stock *model.Stock) error {
	if err := s.store.Insert(stock.Ticker, toDocument(stock)); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("insert %s: %w", stock.Ticker, interfaces.ErrExists)
		}
		return fmt.Errorf("insert %s: %w", stock.Ticker, err)
	}
	return nil
}

func (s *Store) AppendDailyBars(_ context.Context, ticker string, bars []model.DailyBar) (int, error) {
	return s.appendDistinct(ticker, func(st *model.Stock) int { return st.MergeDailyBars(bars) })
}

func (s *Store) AppendIncomeStatements(_ context.Context, ticker string, stmts []model.IncomeStatement) (int, error) {
	return s.appendDistinct(ticker, func(st *model.Stock) int { return st.MergeIncomeStatements(stmts) })
}

// appendDistinct reads, merges and writes the document in one transaction.
func (s *Store) appendDistinct(ticker string, merge func(*model.Stock) int) (int, error) {
	var added int
	err := s.store.Badger().Update(func(tx *badger.Txn) error {
		var doc stockDocument
		found := true
		if err := s.store.TxGet(tx, ticker, &doc); err != nil {
			if !errors.Is(err, badgerhold.ErrNotFound) {
				return err
			}
			found = false
			doc = stockDocument{Ticker: ticker}
		}

		stock := doc.toModel()
		added = merge(stock)
		if found && added == 0 {
			return nil
		}
		return s.store.TxUpsert(tx, ticker, toDocument(stock))
	})
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", ticker, err)
	}
	return added, nil
}

// CreateIndex checks the field is indexed. The ticker is the document key
// and the market index is maintained from the struct tag on every write.
func (s *Store) CreateIndex(_ context.Context, field string) error {
	switch field {
	case interfaces.IndexTicker, interfaces.IndexMarket:
		s.logger.Info().Str("field", field).Str("path", s.path).Msg("Badger index in place")
		return nil
	default:
		return fmt.Errorf("badger store cannot index %q", field)
	}
}

// FindByMarket lists aggregates on one board using the market index.
func (s *Store) FindByMarket(_ context.Context, market model.Market) ([]*model.Stock, error) {
	var docs []stockDocument
	if err := s.store.Find(&docs, badgerhold.Where("Market").Eq(string(market)).Index("Market")); err != nil {
		return nil, fmt.Errorf("find market %s: %w", market, err)
	}
	out := make([]*model.Stock, len(docs))
	for i := range docs {
		out[i] = docs[i].toModel()
	}
	return out, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
