package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score TICKER [TICKER...]",
	Short: "Compute momentum scores",
	Long:  `Scores one ticker (printing the score or failing) or several as a batch
(printing per-ticker results). A batch fails only when no ticker is scored.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if len(args) == 1 {
		score, err := a.MomentumService.CalculateMomentumScore(ctx, args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), score)
	}

	batch := a.MomentumService.ScoreBatch(ctx, args)
	scored, failed := batch.Succeeded(), batch.Failed()
	for ticker, err := range failed {
		a.Logger.Warn().Str("ticker", ticker).Err(err).Msg("Ticker not scored")
	}
	a.Logger.Info().Int("scored", len(scored)).Int("failed", len(failed)).Msg("Batch complete")

	if err := writeJSON(cmd.OutOrStdout(), batch); err != nil {
		return err
	}
	if len(scored) == 0 {
		return fmt.Errorf("no tickers could be scored (%d failed)", len(failed))
	}
	return nil
}
