package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/forecaster/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	logFormat  string
	table      bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "forecaster",
	Short: "SSA price forecaster",
	Long: `Trains singular spectrum analysis models over daily closing prices,
selects the best horizon/window pair on a holdout and predicts the next days.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Log.Level = "debug"
		}
		if logFormat != "" {
			loaded.Log.Format = logFormat
		}
		cfg = loaded
		setupLogger(cfg.Log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "set log level to debug")
	rootCmd.PersistentFlags().StringVar(&logFormat, "format", "", "log format: text|json (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&table, "table", true, "print full tables (false: compact 1-line)")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "err", err)
		logError(err)
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}

// logError añade el error al fichero de errores: timestamp, tipo y mensaje de
// cada eslabón de la cadena de wrapping.
func logError(err error) {
	path := "error.log"
	if cfg != nil && cfg.Paths.ErrorLog != "" {
		path = cfg.Paths.ErrorLog
	}
	f, ferr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if ferr != nil {
		slog.Warn("cannot open error log", "path", path, "err", ferr)
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "%s %T: %v\n", time.Now().Format(time.RFC3339), err, err)
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(f, "    caused by %T: %v\n", e, e)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
