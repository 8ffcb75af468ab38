// Package storetest runs the shared StockStore behaviour checks against a backend.
package storetest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TWStockHarvester/internal/interfaces"
	"TWStockHarvester/internal/model"
)

// Bar builds a bar with identical prices.
func Bar(date, price string, volume int64) model.DailyBar {
	p := decimal.RequireFromString(price)
	return model.DailyBar{Date: date, Open: p, Close: p, High: p, Low: p, Volume: volume}
}

// Statement builds a statement with only revenue and EPS set.
func Statement(year, season int, revenue int64, eps string) model.IncomeStatement {
	return model.IncomeStatement{Year: year, Season: season, Revenue: revenue, EPS: decimal.RequireFromString(eps)}
}

// Run exercises a fresh store returned by open for every subtest.
func Run(t *testing.T, open func(t *testing.T) interfaces.StockStore) {
	ctx := context.Background()

	t.Run("find missing", func(t *testing.T) {
		s := open(t)
		_, err := s.FindByTicker(ctx, "9999")
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})

	t.Run("insert then find", func(t *testing.T) {
		s := open(t)
		stock := &model.Stock{
			Ticker: "2330", Name: "台積電", Sector: "半導體業", Market: model.MarketPrimary,
			DailyBars:        []model.DailyBar{Bar("2021-05-03", "600.50", 26104), Bar("2021-05-04", "593.01", 0)},
			IncomeStatements: []model.IncomeStatement{Statement(2021, 1, 362410422, "5.39")},
		}
		require.NoError(t, s.InsertStock(ctx, stock))

		got, err := s.FindByTicker(ctx, "2330")
		require.NoError(t, err)
		assert.Equal(t, "台積電", got.Name)
		assert.Equal(t, model.MarketPrimary, got.Market)
		assert.Equal(t, []string{"2021-05-03", "2021-05-04"}, got.BarDates())
		assert.True(t, got.DailyBars[0].Close.Equal(decimal.RequireFromString("600.5")))
		assert.Equal(t, int64(26104), got.DailyBars[0].Volume)
		require.Len(t, got.IncomeStatements, 1)
		assert.Equal(t, int64(362410422), got.IncomeStatements[0].Revenue)
		assert.True(t, got.IncomeStatements[0].EPS.Equal(decimal.RequireFromString("5.39")))

		err = s.InsertStock(ctx, &model.Stock{Ticker: "2330"})
		assert.ErrorIs(t, err, interfaces.ErrExists)
	})

	t.Run("append is distinct and ordered", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.InsertStock(ctx, &model.Stock{Ticker: "2330", Market: model.MarketPrimary,
			DailyBars: []model.DailyBar{Bar("2021-05-10", "600", 1)}}))

		added, err := s.AppendDailyBars(ctx, "2330", []model.DailyBar{
			Bar("2021-05-10", "999", 9),
			Bar("2021-05-11", "601", 2),
			Bar("2021-05-03", "590", 3),
			Bar("2021-05-11", "602", 4),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, added)

		added, err = s.AppendDailyBars(ctx, "2330", []model.DailyBar{Bar("2021-05-11", "601", 2)})
		require.NoError(t, err)
		assert.Zero(t, added)

		got, err := s.FindByTicker(ctx, "2330")
		require.NoError(t, err)
		assert.Equal(t, []string{"2021-05-10", "2021-05-11", "2021-05-03"}, got.BarDates())
		assert.True(t, got.DailyBars[0].Close.Equal(decimal.RequireFromString("600")))
		assert.True(t, got.DailyBars[1].Close.Equal(decimal.RequireFromString("601")))
	})

	t.Run("append statements creates aggregate", func(t *testing.T) {
		s := open(t)
		added, err := s.AppendIncomeStatements(ctx, "6488", []model.IncomeStatement{
			Statement(2020, 4, 100, "1.00"),
			Statement(2021, 1, 200, "2.00"),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, added)

		added, err = s.AppendIncomeStatements(ctx, "6488", []model.IncomeStatement{
			Statement(2021, 1, 999, "9.99"),
			Statement(2021, 2, 300, "3.00"),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, added)

		got, err := s.FindByTicker(ctx, "6488")
		require.NoError(t, err)
		assert.Equal(t, []model.Period{{Year: 2020, Season: 4}, {Year: 2021, Season: 1}, {Year: 2021, Season: 2}}, got.StatementPeriods())
		assert.Equal(t, int64(200), got.IncomeStatements[1].Revenue)
	})

	t.Run("create index is idempotent", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateIndex(ctx, interfaces.IndexTicker))
		require.NoError(t, s.CreateIndex(ctx, interfaces.IndexTicker))
		require.NoError(t, s.CreateIndex(ctx, interfaces.IndexMarket))
		assert.Error(t, s.CreateIndex(ctx, "volume"))
	})
}
