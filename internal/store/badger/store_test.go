package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TWStockHarvester/internal/common"
	"TWStockHarvester/internal/interfaces"
	"TWStockHarvester/internal/model"
	"TWStockHarvester/internal/store/storetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(common.NewSilentLogger(), filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) interfaces.StockStore { return openTestStore(t) })
}

func TestStore_FindByMarket(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertStock(ctx, &model.Stock{Ticker: "2330", Market: model.MarketPrimary}))
	require.NoError(t, s.InsertStock(ctx, &model.Stock{Ticker: "6488", Market: model.MarketOTC}))
	require.NoError(t, s.InsertStock(ctx, &model.Stock{Ticker: "3105", Market: model.MarketOTC}))

	otc, err := s.FindByMarket(ctx, model.MarketOTC)
	require.NoError(t, err)
	var tickers []string
	for _, st := range otc {
		tickers = append(tickers, st.Ticker)
	}
	assert.ElementsMatch(t, []string{"6488", "3105"}, tickers)
}
