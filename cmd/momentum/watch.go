package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/momentum/internal/app"
	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/models"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the watchlist on a cron schedule",
	Long: `Runs the watchlist once at startup and then on every tick of the schedule,
printing each result as JSON. Standard five-field expressions and descriptors
such as "@hourly" or "@every 30m" are accepted.`,
	RunE: runWatch,
}

var (
	watchHoldings string
	watchSchedule string
	watchLimit    int
)

func init() {
	watchCmd.Flags().StringVarP(&watchHoldings, "file", "f", "", "Holdings YAML file")
	watchCmd.Flags().StringVar(&watchSchedule, "cron", "0 18 * * 1-5", "Cron schedule")
	watchCmd.Flags().IntVarP(&watchLimit, "max", "n", 0, "Maximum candidates per category (default from config)")
	_ = watchCmd.MarkFlagRequired("file")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	common.PrintBanner(a.Config, a.Logger, watchSchedule)

	out := cmd.OutOrStdout()
	job := app.WatchJob{
		HoldingsPath:  watchHoldings,
		MaxCandidates: watchLimit,
		Emit: func(wl *models.Watchlist) {
			if err := writeJSON(out, wl); err != nil {
				a.Logger.Warn().Err(err).Msg("Failed to write watchlist")
			}
		},
	}

	if err := a.StartWatch(watchSchedule, job); err != nil {
		return err
	}
	a.RunWatchOnce(cmd.Context(), job)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
		a.Logger.Info().Msg("Shutdown signal received")
	case <-cmd.Context().Done():
	}

	common.PrintShutdownBanner(a.Logger)
	return nil
}
