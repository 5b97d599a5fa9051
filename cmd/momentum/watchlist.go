package main

import (
	"github.com/spf13/cobra"

	"github.com/bobmcallan/momentum/internal/app"
	"github.com/bobmcallan/momentum/internal/common"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Propose candidates for under-allocated categories",
	RunE:  runWatchlist,
}

var (
	watchlistHoldings string
	watchlistLimit    int
	watchlistCategory string
)

func init() {
	watchlistCmd.Flags().StringVarP(&watchlistHoldings, "file", "f", "", "Holdings YAML file")
	watchlistCmd.Flags().IntVarP(&watchlistLimit, "max", "n", 0, "Maximum candidates per category (default from config)")
	watchlistCmd.Flags().StringVar(&watchlistCategory, "category", "", "Only list candidates for this category")
	_ = watchlistCmd.MarkFlagRequired("file")
}

func runWatchlist(cmd *cobra.Command, args []string) error {
	holdings, err := app.LoadHoldings(watchlistHoldings)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if watchlistCategory != "" {
		if _, ok := a.Model.Category(watchlistCategory); !ok {
			return &common.ValidationError{Field: "category", Value: watchlistCategory, Reason: "not a configured category"}
		}
	}

	wl, err := a.WatchlistService.GenerateWatchlist(cmd.Context(), holdings, watchlistLimit)
	if err != nil {
		return err
	}
	if watchlistCategory != "" {
		wl.Candidates = wl.ForCategory(watchlistCategory)
	}
	return writeJSON(cmd.OutOrStdout(), wl)
}
