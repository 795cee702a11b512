package main

import (
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/forecaster/config"
	"github.com/alejandrodnm/forecaster/internal/adapters/dataset"
	"github.com/alejandrodnm/forecaster/internal/adapters/marketdata"
	"github.com/alejandrodnm/forecaster/internal/adapters/modelrepo"
	"github.com/alejandrodnm/forecaster/internal/adapters/notify"
	"github.com/alejandrodnm/forecaster/internal/adapters/ssa"
	"github.com/alejandrodnm/forecaster/internal/adapters/storage"
	"github.com/alejandrodnm/forecaster/internal/application/datasync"
	"github.com/spf13/afero"
)

// app agrupa los adapters compartidos por los subcomandos.
type app struct {
	files    *dataset.Store
	models   *modelrepo.Repository
	engine   *ssa.Engine
	client   *marketdata.Client
	sync     *datasync.Synchronizer
	store    *storage.SQLiteStorage
	reporter *notify.Console
}

func newApp(cfg *config.Config) (*app, error) {
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %q: %w", cfg.Paths.DataDir, err)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}

	client := marketdata.NewClient(marketdata.Config{
		QuandlBase:    cfg.API.QuandlBase,
		CoinGeckoBase: cfg.API.CoinGeckoBase,
		APIKey:        cfg.API.QuandlAPIKey,
		Database:      cfg.API.QuandlDatabase,
		Timeout:       cfg.Timeout(),
		MaxRetries:    cfg.API.MaxRetries,
	})
	files := dataset.NewStore(fs)

	slog.Debug("app ready",
		"data_dir", cfg.Paths.DataDir,
		"models_dir", cfg.Paths.ModelsDir,
		"dsn", cfg.Storage.DSN,
	)
	return &app{
		files:    files,
		models:   modelrepo.New(fs, cfg.Paths.ModelsDir),
		engine:   ssa.NewEngine(),
		client:   client,
		sync:     datasync.New(files, client),
		store:    store,
		reporter: notify.NewConsole(table),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("storage close error", "err", err)
	}
}
