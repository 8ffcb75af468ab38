// Package sqlite stores stock aggregates in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	_ "modernc.org/sqlite"

	"TWStockHarvester/internal/interfaces"
	"TWStockHarvester/internal/model"
)

// Store implements interfaces.StockStore on SQLite. Record order is the
// rowid order, which is insertion order.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger arbor.ILogger
}

// NewStore opens (or creates) the SQLite database and runs migrations.
func NewStore(logger arbor.ILogger, dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("SQLite store opened")
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stocks (
			ticker TEXT PRIMARY KEY,
			name   TEXT NOT NULL DEFAULT '',
			sector TEXT NOT NULL DEFAULT '',
			market TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS daily_bars (
			ticker TEXT NOT NULL,
			date   TEXT NOT NULL,
			open   TEXT NOT NULL,
			close  TEXT NOT NULL,
			high   TEXT NOT NULL,
			low    TEXT NOT NULL,
			volume INTEGER NOT NULL,
			PRIMARY KEY (ticker, date)
		)`,

		`CREATE TABLE IF NOT EXISTS income_statements (
			ticker            TEXT NOT NULL,
			year              INTEGER NOT NULL,
			season            INTEGER NOT NULL,
			revenue           INTEGER NOT NULL,
			cost              INTEGER NOT NULL,
			gross_profit      INTEGER NOT NULL,
			operating_expense INTEGER NOT NULL,
			operating_income  INTEGER NOT NULL,
			non_operating_net INTEGER NOT NULL,
			income_before_tax INTEGER NOT NULL,
			net_income        INTEGER NOT NULL,
			eps               TEXT NOT NULL,
			PRIMARY KEY (ticker, year, season)
		)`,
	}

	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("exec %q: %w", st[:40], err)
		}
	}
	return nil
}

func (s *Store) FindByTicker(ctx context.Context, ticker string) (*model.Stock, error) {
	stock := &model.Stock{Ticker: ticker}
	var market string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, sector, market FROM stocks WHERE ticker = ?`, ticker,
	).Scan(&stock.Name, &stock.Sector, &market)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", ticker, err)
	}
	stock.Market = model.Market(market)

	if stock.DailyBars, err = s.bars(ctx, ticker); err != nil {
		return nil, err
	}
	if stock.IncomeStatements, err = s.statements(ctx, ticker); err != nil {
		return nil, err
	}
	return stock, nil
}

func (s *Store) bars(ctx context.Context, ticker string) ([]model.DailyBar, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, open, close, high, low, volume FROM daily_bars WHERE ticker = ? ORDER BY rowid`, ticker)
	if err != nil {
		return nil, fmt.Errorf("query bars %s: %w", ticker, err)
	}
	defer rows.Close()

	var out []model.DailyBar
	for rows.Next() {
		var (
			b                    model.DailyBar
			open, cls, high, low string
		)
		if err := rows.Scan(&b.Date, &open, &cls, &high, &low, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar %s: %w", ticker, err)
		}
		if b.Open, err = decimal.NewFromString(open); err != nil {
			return nil, fmt.Errorf("bar %s %s open: %w", ticker, b.Date, err)
		}
		if b.Close, err = decimal.NewFromString(cls); err != nil {
			return nil, fmt.Errorf("bar %s %s close: %w", ticker, b.Date, err)
		}
		if b.High, err = decimal.NewFromString(high); err != nil {
			return nil, fmt.Errorf("bar %s %s high: %w", ticker, b.Date, err)
		}
		if b.Low, err = decimal.NewFromString(low); err != nil {
			return nil, fmt.Errorf("bar %s %s low: %w", ticker, b.Date, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) statements(ctx context.Context, ticker string) ([]model.IncomeStatement, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT year, season, revenue, cost, gross_profit,
		operating_expense, operating_income, non_operating_net, income_before_tax, net_income, eps
		FROM income_statements WHERE ticker = ? ORDER BY rowid`, ticker)
	if err != nil {
		return nil, fmt.Errorf("query statements %s: %w", ticker, err)
	}
	defer rows.Close()

	var out []model.IncomeStatement
	for rows.Next() {
		var (
			st  model.IncomeStatement
			eps string
		)
		if err := rows.Scan(&st.Year, &st.Season, &st.Revenue, &st.Cost, &st.GrossProfit,
			&st.OperatingExpense, &st.OperatingIncome, &st.NonOperatingNet,
			&st.IncomeBeforeTax, &st.NetIncome, &eps); err != nil {
			return nil, fmt.Errorf("scan statement %s: %w", ticker, err)
		}
		if st.EPS, err = decimal.NewFromString(eps); err != nil {
			return nil, fmt.Errorf("statement %s %s eps: %w", ticker, st.Period(), err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) InsertStock(ctx context.Context, stock *model.Stock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO stocks (ticker, name, sector, market) VALUES (?,?,?,?)`,
			stock.Ticker, stock.Name, stock.Sector, string(stock.Market))
		if err != nil {
			return fmt.Errorf("insert %s: %w", stock.Ticker, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("insert %s: %w", stock.Ticker, interfaces.ErrExists)
		}
		if _, err := insertBars(ctx, tx, stock.Ticker, stock.DailyBars); err != nil {
			return err
		}
		_, err = insertStatements(ctx, tx, stock.Ticker, stock.IncomeStatements)
		return err
	})
}

func (s *Store) AppendDailyBars(ctx context.Context, ticker string, bars []model.DailyBar) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := ensureStock(ctx, tx, ticker); err != nil {
			return err
		}
		var err error
		added, err = insertBars(ctx, tx, ticker, bars)
		return err
	})
	return added, err
}

func (s *Store) AppendIncomeStatements(ctx context.Context, ticker string, stmts []model.IncomeStatement) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := ensureStock(ctx, tx, ticker); err != nil {
			return err
		}
		var err error
		added, err = insertStatements(ctx, tx, ticker, stmts)
		return err
	})
	return added, err
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func ensureStock(ctx context.Context, tx *sql.Tx, ticker string) error {
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO stocks (ticker) VALUES (?)`, ticker); err != nil {
		return fmt.Errorf("upsert %s: %w", ticker, err)
	}
	return nil
}

// insertBars skips bars whose (ticker, date) is already stored.
func insertBars(ctx context.Context, tx *sql.Tx, ticker string, bars []model.DailyBar) (int, error) {
	added := 0
	for _, b := range bars {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO daily_bars
			(ticker, date, open, close, high, low, volume) VALUES (?,?,?,?,?,?,?)`,
			ticker, b.Date, b.Open.String(), b.Close.String(), b.High.String(), b.Low.String(), b.Volume)
		if err != nil {
			return 0, fmt.Errorf("insert bar %s %s: %w", ticker, b.Date, err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}
	return added, nil
}

func insertStatements(ctx context.Context, tx *sql.Tx, ticker string, stmts []model.IncomeStatement) (int, error) {
	added := 0
	for _, st := range stmts {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO income_statements
			(ticker, year, season, revenue, cost, gross_profit, operating_expense, operating_income,
			 non_operating_net, income_before_tax, net_income, eps)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			ticker, st.Year, st.Season, st.Revenue, st.Cost, st.GrossProfit,
			st.OperatingExpense, st.OperatingIncome, st.NonOperatingNet,
			st.IncomeBeforeTax, st.NetIncome, st.EPS.String())
		if err != nil {
			return 0, fmt.Errorf("insert statement %s %s: %w", ticker, st.Period(), err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}
	return added, nil
}

var indexes = map[string][]string{
	interfaces.IndexTicker: {
		`CREATE INDEX IF NOT EXISTS idx_daily_bars_ticker ON daily_bars(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_income_statements_ticker ON income_statements(ticker)`,
	},
	interfaces.IndexMarket: {
		`CREATE INDEX IF NOT EXISTS idx_stocks_market ON stocks(market)`,
	},
}

func (s *Store) CreateIndex(ctx context.Context, field string) error {
	stmts, ok := indexes[field]
	if !ok {
		return fmt.Errorf("sqlite store cannot index %q", field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("create index on %s: %w", field, err)
		}
	}
	s.logger.Info().Str("field", field).Msg("SQLite index ensured")
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
