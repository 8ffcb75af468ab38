// Package postgres stores stock aggregates in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"

	"TWStockHarvester/internal/interfaces"
	"TWStockHarvester/internal/model"
)

// Store implements interfaces.StockStore on PostgreSQL. Record order is the
// seq column, which is insertion order.
type Store struct {
	pool   *pgxpool.Pool
	logger arbor.ILogger
}

// NewStore connects to dsn and runs migrations.
func NewStore(ctx context.Context, logger arbor.ILogger, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("host", cfg.ConnConfig.Host).Str("database", cfg.ConnConfig.Database).Msg("Postgres store opened")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stocks (
			ticker TEXT PRIMARY KEY,
			name   TEXT NOT NULL DEFAULT '',
			sector TEXT NOT NULL DEFAULT '',
			market TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS daily_bars (
			seq    BIGSERIAL,
			ticker TEXT NOT NULL REFERENCES stocks(ticker),
			date   DATE NOT NULL,
			open   NUMERIC(14,2) NOT NULL,
			close  NUMERIC(14,2) NOT NULL,
			high   NUMERIC(14,2) NOT NULL,
			low    NUMERIC(14,2) NOT NULL,
			volume BIGINT NOT NULL,
			PRIMARY KEY (ticker, date)
		)`,

		`CREATE TABLE IF NOT EXISTS income_statements (
			seq               BIGSERIAL,
			ticker            TEXT NOT NULL REFERENCES stocks(ticker),
			year              INTEGER NOT NULL,
			season            SMALLINT NOT NULL,
			revenue           BIGINT NOT NULL,
			cost              BIGINT NOT NULL,
			gross_profit      BIGINT NOT NULL,
			operating_expense BIGINT NOT NULL,
			operating_income  BIGINT NOT NULL,
			non_operating_net BIGINT NOT NULL,
			income_before_tax BIGINT NOT NULL,
			net_income        BIGINT NOT NULL,
			eps               NUMERIC(10,2) NOT NULL,
			PRIMARY KEY (ticker, year, season)
		)`,
	}
	for _, st := range stmts {
		if _, err := s.pool.Exec(ctx, st); err != nil {
			return fmt.Errorf("exec %q: %w", st[:40], err)
		}
	}
	return nil
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func (s *Store) FindByTicker(ctx context.Context, ticker string) (*model.Stock, error) {
	stock := &model.Stock{Ticker: ticker}
	var market string
	err := s.pool.QueryRow(ctx,
		`SELECT name, sector, market FROM stocks WHERE ticker = $1`, ticker,
	).Scan(&stock.Name, &stock.Sector, &market)
	if errors.Is(err, pgx.ErrNoRows) {
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
	rows, err := s.pool.Query(ctx, `SELECT to_char(date, 'YYYY-MM-DD'), open, close, high, low, volume
		FROM daily_bars WHERE ticker = $1 ORDER BY seq`, ticker)
	if err != nil {
		return nil, fmt.Errorf("query bars %s: %w", ticker, err)
	}
	defer rows.Close()

	var out []model.DailyBar
	for rows.Next() {
		var (
			b                    model.DailyBar
			open, cls, high, low pgtype.Numeric
		)
		if err := rows.Scan(&b.Date, &open, &cls, &high, &low, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar %s: %w", ticker, err)
		}
		b.Open, b.Close, b.High, b.Low = fromNumeric(open), fromNumeric(cls), fromNumeric(high), fromNumeric(low)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) statements(ctx context.Context, ticker string) ([]model.IncomeStatement, error) {
	rows, err := s.pool.Query(ctx, `SELECT year, season, revenue, cost, gross_profit,
		operating_expense, operating_income, non_operating_net, income_before_tax, net_income, eps
		FROM income_statements WHERE ticker = $1 ORDER BY seq`, ticker)
	if err != nil {
		return nil, fmt.Errorf("query statements %s: %w", ticker, err)
	}
	defer rows.Close()

	var out []model.IncomeStatement
	for rows.Next() {
		var (
			st  model.IncomeStatement
			eps pgtype.Numeric
		)
		if err := rows.Scan(&st.Year, &st.Season, &st.Revenue, &st.Cost, &st.GrossProfit,
			&st.OperatingExpense, &st.OperatingIncome, &st.NonOperatingNet,
			&st.IncomeBeforeTax, &st.NetIncome, &eps); err != nil {
			return nil, fmt.Errorf("scan statement %s: %w", ticker, err)
		}
		st.EPS = fromNumeric(eps)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) InsertStock(ctx context.Context, stock *model.Stock) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `INSERT INTO stocks (ticker, name, sector, market)
			VALUES ($1, $2, $3, $4) ON CONFLICT (ticker) DO NOTHING`,
			stock.Ticker, stock.Name, stock.Sector, string(stock.Market))
		if err != nil {
			return fmt.Errorf("insert %s: %w", stock.Ticker, err)
		}
		if tag.RowsAffected() == 0 {
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
	var added int
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
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
	var added int
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := ensureStock(ctx, tx, ticker); err != nil {
			return err
		}
		var err error
		added, err = insertStatements(ctx, tx, ticker, stmts)
		return err
	})
	return added, err
}

func ensureStock(ctx context.Context, tx pgx.Tx, ticker string) error {
	if _, err := tx.Exec(ctx, `INSERT INTO stocks (ticker) VALUES ($1) ON CONFLICT (ticker) DO NOTHING`, ticker); err != nil {
		return fmt.Errorf("upsert %s: %w", ticker, err)
	}
	return nil
}

// insertBars skips bars whose (ticker, date) is already stored.
func insertBars(ctx context.Context, tx pgx.Tx, ticker string, bars []model.DailyBar) (int, error) {
	added := 0
	for _, b := range bars {
		date, err := time.Parse(model.DateLayout, b.Date)
		if err != nil {
			return 0, fmt.Errorf("bar %s date: %w", ticker, err)
		}
		tag, err := tx.Exec(ctx, `INSERT INTO daily_bars (ticker, date, open, close, high, low, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (ticker, date) DO NOTHING`,
			ticker, date, numeric(b.Open), numeric(b.Close), numeric(b.High), numeric(b.Low), b.Volume)
		if err != nil {
			return 0, fmt.Errorf("insert bar %s %s: %w", ticker, b.Date, err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

func insertStatements(ctx context.Context, tx pgx.Tx, ticker string, stmts []model.IncomeStatement) (int, error) {
	added := 0
	for _, st := range stmts {
		tag, err := tx.Exec(ctx, `INSERT INTO income_statements
			(ticker, year, season, revenue, cost, gross_profit, operating_expense, operating_income,
			 non_operating_net, income_before_tax, net_income, eps)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (ticker, year, season) DO NOTHING`,
			ticker, st.Year, st.Season, st.Revenue, st.Cost, st.GrossProfit,
			st.OperatingExpense, st.OperatingIncome, st.NonOperatingNet,
			st.IncomeBeforeTax, st.NetIncome, numeric(st.EPS))
		if err != nil {
			return 0, fmt.Errorf("insert statement %s %s: %w", ticker, st.Period(), err)
		}
		added += int(tag.RowsAffected())
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
		return fmt.Errorf("postgres store cannot index %q", field)
	}
	for _, st := range stmts {
		if _, err := s.pool.Exec(ctx, st); err != nil {
			return fmt.Errorf("create index on %s: %w", field, err)
		}
	}
	s.logger.Info().Str("field", field).Msg("Postgres index ensured")
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
