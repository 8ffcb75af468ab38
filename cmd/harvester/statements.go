package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"TWStockHarvester/internal/model"
	"TWStockHarvester/internal/reconcile"
)

var statementsCmd = &cobra.Command{
	Use:   "statements",
	Short: "Harvest quarterly income statements",
	Long: `Fetches income statements per season (YEAR-SEASON, e.g. 2021-1) for every
listed common stock, only requesting seasons not yet stored. --latest
continues from the newest stored season through the latest announced one.`,
	RunE: runStatements,
}

var (
	statementsStart   string
	statementsEnd     string
	statementsLatest  bool
	statementsSource  string
	statementsTickers []string
)

func init() {
	statementsCmd.Flags().StringVar(&statementsStart, "start", "", "First season, YEAR-SEASON")
	statementsCmd.Flags().StringVar(&statementsEnd, "end", "", "Last season, YEAR-SEASON")
	statementsCmd.Flags().BoolVar(&statementsLatest, "latest", false, "Fetch through the latest announced season")
	statementsCmd.Flags().StringVar(&statementsSource, "source", "", "Statement source: finmind or mops (default from config)")
	statementsCmd.Flags().StringSliceVar(&statementsTickers, "ticker", nil, "Restrict to these tickers")
}

func parsePeriodFlag(name, v string) (model.Period, error) {
	if v == "" {
		return model.Period{}, nil
	}
	p, err := model.ParsePeriod(v)
	if err != nil {
		return model.Period{}, fmt.Errorf("--%s: %w", name, err)
	}
	return p, nil
}

func runStatements(cmd *cobra.Command, args []string) error {
	if !statementsLatest && (statementsStart == "" || statementsEnd == "") {
		return fmt.Errorf("--start and --end are required unless --latest is set")
	}
	start, err := parsePeriodFlag("start", statementsStart)
	if err != nil {
		return err
	}
	end, err := parsePeriodFlag("end", statementsEnd)
	if err != nil {
		return err
	}
	req := reconcile.PeriodRequest{Range: model.PeriodRange{Start: start, End: end}, Latest: statementsLatest}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, statementsSource)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.harvester.HarvestStatements(ctx, req, statementsTickers...)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary.String())
	return nil
}
