package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/alejandrodnm/forecaster/internal/application/datasync"
	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
	"github.com/google/uuid"
)

// Request son las opciones de un entrenamiento.
type Request struct {
	Symbol        string
	Horizon       int       // horizonte mínimo del grid
	SeriesLength  int       // longitud máxima de serie (tope de h y w)
	ToLatest      bool      // sincronizar el dataset antes de entrenar
	StartDate     time.Time // ignorar observaciones anteriores
	PercentChange bool      // entrenar sobre cambios porcentuales diarios
}

// Service orquesta un entrenamiento completo: datos → grid search →
// finalización → persistencia → reporte.
type Service struct {
	dataDir  string
	search   *Search
	files    ports.DatasetStore
	sync     *datasync.Synchronizer
	models   ports.ModelRepository
	storage  ports.Storage
	reporter ports.Reporter
}

// NewService crea un Service con todas las dependencias inyectadas.
// storage y reporter pueden ser nil.
func NewService(
	dataDir string,
	search *Search,
	files ports.DatasetStore,
	sync *datasync.Synchronizer,
	models ports.ModelRepository,
	storage ports.Storage,
	reporter ports.Reporter,
) *Service {
	return &Service{
		dataDir:  dataDir,
		search:   search,
		files:    files,
		sync:     sync,
		models:   models,
		storage:  storage,
		reporter: reporter,
	}
}

// Run ejecuta el entrenamiento. Si el grid search falla no se escribe nada.
func (s *Service) Run(ctx context.Context, req Request) (domain.TrainingRun, error) {
	start := time.Now()
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return domain.TrainingRun{}, fmt.Errorf("trainer.Run: empty symbol: %w", domain.ErrConfiguration)
	}
	path := datasync.DatasetPath(s.dataDir, symbol)

	slog.Info("training starting",
		"symbol", symbol,
		"horizon", req.Horizon,
		"series_length", req.SeriesLength,
		"to_latest", req.ToLatest,
		"percent_change", req.PercentChange,
	)

	if req.ToLatest {
		if err := s.sync.EnsureDataset(ctx, symbol, path); err != nil {
			return domain.TrainingRun{}, fmt.Errorf("trainer.Run: %w", err)
		}
		if _, err := s.sync.UpdateToLatest(ctx, symbol, path); err != nil {
			return domain.TrainingRun{}, fmt.Errorf("trainer.Run: %w", err)
		}
	}

	series, err := s.files.ReadSeries(path, req.StartDate)
	if err != nil {
		return domain.TrainingRun{}, fmt.Errorf("trainer.Run: %w", err)
	}
	if req.PercentChange {
		series = series.PercentChanges(1)
	}

	best, err := s.search.Train(ctx, series, req.Horizon, req.SeriesLength)
	if err != nil {
		return domain.TrainingRun{}, fmt.Errorf("trainer.Run: %s: %w", symbol, err)
	}

	slog.Info("best model",
		"symbol", symbol,
		"horizon", best.Horizon(),
		"window_size", best.WindowSize(),
		"mae", best.Metrics.MeanAbsoluteError,
		"mse", best.Metrics.MeanSquaredError,
		"rmse", best.Metrics.RootMeanSquaredError(),
		"mfe", best.Metrics.MeanForecastError,
	)

	points, err := best.Finalize()
	if err != nil {
		return domain.TrainingRun{}, fmt.Errorf("trainer.Run: %w", err)
	}

	// Tras Finalize el training ya incluye el tramo de test.
	if err := s.files.WriteSeries(s.output(symbol, "training_split"), best.Training); err != nil {
		return domain.TrainingRun{}, fmt.Errorf("trainer.Run: %w", err)
	}
	if err := s.files.WriteSeries(s.output(symbol, "testing_split"), best.Test); err != nil {
		return domain.TrainingRun{}, fmt.Errorf("trainer.Run: %w", err)
	}
	if err := s.files.WriteForecasts(s.output(symbol, "training_forecast"), points); err != nil {
		return domain.TrainingRun{}, fmt.Errorf("trainer.Run: %w", err)
	}

	meta := best.Metadata()
	ref, err := s.models.Save(symbol, best.Model.Checkpoint, meta)
	if err != nil {
		return domain.TrainingRun{}, fmt.Errorf("trainer.Run: %w", err)
	}

	run := domain.TrainingRun{
		ID:             uuid.NewString(),
		Symbol:         symbol,
		TrainedAt:      time.Now().UTC(),
		Metadata:       meta,
		ModelPath:      ref.BlobPath,
		CellsEvaluated: best.CellsEvaluated,
		CellsFailed:    best.CellsFailed,
		Duration:       time.Since(start),
	}

	if s.storage != nil {
		if err := s.storage.SaveRun(ctx, run); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}
	if s.reporter != nil {
		if err := s.reporter.ReportTraining(ctx, run); err != nil {
			slog.Warn("reporter error", "err", err)
		}
	}

	slog.Info("training complete",
		"symbol", symbol,
		"model", ref.BlobPath,
		"trained_to", meta.TrainedToDate.Format(domain.DateLayout),
		"duration", run.Duration.Round(time.Millisecond),
	)
	return run, nil
}

// output devuelve <dataDir>/<SYMBOL>_<kind>.csv.
func (s *Service) output(symbol, kind string) string {
	return filepath.Join(s.dataDir, symbol+"_"+kind+".csv")
}
