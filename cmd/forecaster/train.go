package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/forecaster/internal/application/trainer"
	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train [symbol]",
	Short: "Grid-search horizon and window, keep the best model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := trainer.Request{
			Symbol:        args[0],
			Horizon:       cfg.Training.Horizon,
			SeriesLength:  cfg.Training.SeriesLength,
			PercentChange: cfg.Training.PercentChange,
		}
		start, err := cfg.StartDate()
		if err != nil {
			return err
		}
		req.StartDate = start

		flags := cmd.Flags()
		if flags.Changed("horizon") {
			req.Horizon, _ = flags.GetInt("horizon")
		}
		if flags.Changed("series-length") {
			req.SeriesLength, _ = flags.GetInt("series-length")
		}
		if flags.Changed("percent-change") {
			req.PercentChange, _ = flags.GetBool("percent-change")
		}
		if flags.Changed("start-date") {
			raw, _ := flags.GetString("start-date")
			if req.StartDate, err = domain.ParseDate(raw); err != nil {
				return fmt.Errorf("--start-date %q: %v: %w", raw, err, domain.ErrConfiguration)
			}
		}
		req.ToLatest, _ = flags.GetBool("to-latest-data")

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		search := trainer.NewSearch(trainer.SearchConfig{
			Workers:         cfg.Training.Workers,
			ConfidenceLevel: cfg.Training.ConfidenceLevel,
		}, a.engine)
		svc := trainer.NewService(cfg.Paths.DataDir, search, a.files, a.sync, a.models, a.store, a.reporter)

		started := time.Now()
		run, err := svc.Run(cmd.Context(), req)
		if err != nil {
			return err
		}
		slog.Info("training finished", "symbol", run.Symbol, "model", run.ModelPath, "elapsed", time.Since(started).Round(time.Millisecond))
		return nil
	},
}

func init() {
	trainCmd.Flags().Int("horizon", 0, "minimum forecast horizon (overrides config)")
	trainCmd.Flags().Int("series-length", 0, "maximum series length (overrides config)")
	trainCmd.Flags().Bool("to-latest-data", true, "download missing history before training (--to-latest-data=false to train offline)")
	trainCmd.Flags().String("start-date", "", "ignore observations before YYYY-MM-DD")
	trainCmd.Flags().Bool("percent-change", false, "train on daily percent changes")
	rootCmd.AddCommand(trainCmd)
}
