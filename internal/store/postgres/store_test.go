package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"TWStockHarvester/internal/common"
	"TWStockHarvester/internal/interfaces"
	"TWStockHarvester/internal/store/storetest"
)

func TestStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) interfaces.StockStore {
		ctx := context.Background()
		s, err := NewStore(ctx, common.NewSilentLogger(), dsn)
		require.NoError(t, err)
		_, err = s.pool.Exec(ctx, `TRUNCATE daily_bars, income_statements, stocks`)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}
