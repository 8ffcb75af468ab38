package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"TWStockHarvester/internal/model"
	"TWStockHarvester/internal/reconcile"
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Harvest daily bars",
	Long: `Fetches daily OHLC bars for every listed common stock, only requesting
the dates not yet stored. --latest continues from the newest stored bar.`,
	RunE: runPrices,
}

var (
	pricesStart   string
	pricesEnd     string
	pricesLatest  bool
	pricesTickers []string
)

func init() {
	pricesCmd.Flags().StringVar(&pricesStart, "start", "", "First date, YYYY-MM-DD")
	pricesCmd.Flags().StringVar(&pricesEnd, "end", "", "Last date, YYYY-MM-DD")
	pricesCmd.Flags().BoolVar(&pricesLatest, "latest", false, "Fetch from the newest stored bar through today")
	pricesCmd.Flags().StringSliceVar(&pricesTickers, "ticker", nil, "Restrict to these tickers")
}

func runPrices(cmd *cobra.Command, args []string) error {
	req := reconcile.DateRequest{Range: model.DateRange{Start: pricesStart, End: pricesEnd}, Latest: pricesLatest}
	if !req.Latest && (pricesStart == "" || pricesEnd == "") {
		return fmt.Errorf("--start and --end are required unless --latest is set")
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, "")
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.harvester.HarvestPrices(ctx, req, pricesTickers...)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary.String())
	return nil
}
