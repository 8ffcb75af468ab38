package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"TWStockHarvester/internal/collector"
)

var listingCmd = &cobra.Command{
	Use:   "listing",
	Short: "Print the common stock listing of both boards",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		client := collector.NewHTTPClient(cfg.Proxy, cfg.Sources.Timeout)
		f := collector.NewListingFetcher(cfg.Sources.Listing.PrimaryURL, cfg.Sources.Listing.OTCURL, fetcherOpts(client, "")...)
		listing, err := f.FetchListing(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range listing.Entries() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Ticker, e.Name, e.Market, e.Sector)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d tickers\n", listing.Len())
		return nil
	},
}
