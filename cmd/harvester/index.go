package main

import (
	"github.com/spf13/cobra"

	"TWStockHarvester/internal/interfaces"
	"TWStockHarvester/internal/store"
)

var indexFields []string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Create store indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		st, err := store.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		for _, f := range indexFields {
			if err := st.CreateIndex(ctx, f); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().StringSliceVar(&indexFields, "field", []string{interfaces.IndexTicker}, "Fields to index: ticker, market")
}
