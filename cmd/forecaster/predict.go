package main

import (
	"github.com/alejandrodnm/forecaster/internal/application/predictor"
	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict [symbol]",
	Short: "Forecast the next days with the latest model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := predictor.Request{Symbol: args[0]}
		req.ToLatest, _ = cmd.Flags().GetBool("to-latest-data")
		if cmd.Flags().Changed("custom-price") {
			price, _ := cmd.Flags().GetFloat64("custom-price")
			req.CustomPrice = &price
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		svc := predictor.NewService(cfg.Paths.DataDir, a.engine, a.models, a.files, a.sync, a.client, a.store, a.reporter)
		_, err = svc.Run(cmd.Context(), req)
		return err
	},
}

func init() {
	predictCmd.Flags().Bool("to-latest-data", true, "fold history after the model and today's price (--to-latest-data=false to predict offline)")
	predictCmd.Flags().Float64("custom-price", 0, "use this price as today's observation")
	rootCmd.AddCommand(predictCmd)
}
