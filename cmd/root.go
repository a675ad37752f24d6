package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:   "wres",
		Short: "Forecast verification",
		Long: `wres pairs forecasts with observations and computes verification
statistics by lead window and threshold.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML declaration (default $WRES_CONFIG)")
	root.AddCommand(newEvaluateCmd(&configPath), newMetricsCmd())
	return root
}
