package main

import (
	"github.com/spf13/cobra"

	"github.com/bobmcallan/momentum/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		common.LoadVersionFromFile()
		return writeJSON(cmd.OutOrStdout(), common.GetVersionInfo())
	},
}
