package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/momentum/internal/app"
	"github.com/bobmcallan/momentum/internal/models"
	"github.com/bobmcallan/momentum/internal/services/portfolio"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Analyse holdings against the category allocation model",
	RunE:  runPortfolio,
}

var (
	portfolioHoldings string
	portfolioChart    string
	portfolioTicker   string
)

func init() {
	portfolioCmd.Flags().StringVarP(&portfolioHoldings, "file", "f", "", "Holdings YAML file")
	portfolioCmd.Flags().StringVar(&portfolioChart, "chart", "", "Write a PNG allocation chart to this path")
	portfolioCmd.Flags().StringVarP(&portfolioTicker, "ticker", "t", "", "Print only this holding's analysis")
	_ = portfolioCmd.MarkFlagRequired("file")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	holdings, err := app.LoadHoldings(portfolioHoldings)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.PortfolioService.AnalyzePortfolio(cmd.Context(), holdings)
	if err != nil {
		return err
	}

	if portfolioChart != "" {
		png, err := portfolio.RenderAllocationChart(snapshot.Categories)
		if err != nil {
			return fmt.Errorf("failed to render chart: %w", err)
		}
		if err := os.WriteFile(portfolioChart, png, 0644); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
		a.Logger.Info().Str("path", portfolioChart).Int("bytes", len(png)).Msg("Allocation chart written")
	}

	if portfolioTicker != "" {
		h := snapshot.FindHolding(portfolioTicker)
		if h == nil {
			if reason, ok := snapshot.Errors[models.NormalizeTicker(portfolioTicker)]; ok {
				return fmt.Errorf("holding %s not analysed: %s", portfolioTicker, reason)
			}
			return fmt.Errorf("holding %s not found", portfolioTicker)
		}
		return writeJSON(cmd.OutOrStdout(), h)
	}

	return writeJSON(cmd.OutOrStdout(), snapshot)
}
