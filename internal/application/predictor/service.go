package predictor

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

// Request son las opciones de una predicción.
type Request struct {
	Symbol string
	// ToLatest incorpora el histórico posterior al modelo y el precio actual.
	ToLatest bool
	// CustomPrice sustituye el precio de hoy (y descarta datos de hoy o posteriores).
	CustomPrice *float64
}

// Service orquesta una predicción: modelo más reciente → datos nuevos →
// forecast → ficheros de salida → histórico → reporte.
type Service struct {
	dataDir  string
	engine   ports.ForecastEngine
	models   ports.ModelRepository
	files    ports.DatasetStore
	sync     *datasync.Synchronizer
	provider ports.MarketDataProvider
	storage  ports.Storage
	reporter ports.Reporter
	now      func() time.Time
}

// NewService crea un Service con todas las dependencias inyectadas.
// provider, storage y reporter pueden ser nil.
func NewService(
	dataDir string,
	engine ports.ForecastEngine,
	models ports.ModelRepository,
	files ports.DatasetStore,
	sync *datasync.Synchronizer,
	provider ports.MarketDataProvider,
	storage ports.Storage,
	reporter ports.Reporter,
) *Service {
	return &Service{
		dataDir:  dataDir,
		engine:   engine,
		models:   models,
		files:    files,
		sync:     sync,
		provider: provider,
		storage:  storage,
		reporter: reporter,
		now:      time.Now,
	}
}

// SetClock reemplaza el reloj que define "hoy".
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Run ejecuta la predicción para el símbolo.
func (s *Service) Run(ctx context.Context, req Request) (domain.PredictionResult, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return domain.PredictionResult{}, fmt.Errorf("predictor.Run: empty symbol: %w", domain.ErrConfiguration)
	}

	ref, meta, err := s.models.Latest(symbol)
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("predictor.Run: %w", err)
	}
	model, err := s.load(ref)
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("predictor.Run: %w", err)
	}
	slog.Info("model loaded",
		"symbol", symbol,
		"model", ref.BlobPath,
		"trained_to", meta.TrainedToDate.Format(domain.DateLayout),
		"horizon", meta.Horizon,
		"window_size", meta.WindowSize,
	)

	newObs, err := s.gatherNewData(ctx, symbol, meta, req)
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("predictor.Run: %w", err)
	}

	result, err := Predict(model, meta, newObs)
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("predictor.Run: %s: %w", symbol, err)
	}

	if err := s.files.WriteForecasts(s.output(symbol, "prediction_forecast"), result.Points); err != nil {
		return domain.PredictionResult{}, fmt.Errorf("predictor.Run: %w", err)
	}
	s.writePredictionDataset(symbol, newObs)

	if s.storage != nil {
		rec := domain.PredictionRecord{
			ID:              uuid.NewString(),
			Symbol:          symbol,
			CreatedAt:       s.now().UTC(),
			TrainedToDate:   result.TrainedToDate,
			NewObservations: len(newObs),
			Points:          result.Points,
		}
		if err := s.storage.SavePrediction(ctx, rec); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}
	if s.reporter != nil {
		if err := s.reporter.ReportPrediction(ctx, symbol, result); err != nil {
			slog.Warn("reporter error", "err", err)
		}
	}

	slog.Info("prediction complete",
		"symbol", symbol,
		"new_observations", len(newObs),
		"points", len(result.Points),
	)
	return result, nil
}

func (s *Service) load(ref ports.ModelRef) (ports.FittedModel, error) {
	rc, err := s.models.Open(ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	model, err := s.engine.Load(rc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ref.BlobPath, err)
	}
	return model, nil
}

// gatherNewData reúne las observaciones posteriores al modelo:
//   - ToLatest: histórico desde TrainedToDate (si está obsoleto) + precio actual hoy
//   - CustomPrice: descarta lo de hoy en adelante y añade (hoy, precio)
//
// El resultado está ordenado, sin fechas repetidas y es posterior a TrainedToDate.
func (s *Service) gatherNewData(ctx context.Context, symbol string, meta domain.ModelMetadata, req Request) (domain.Series, error) {
	today := domain.DateOnly(s.now())
	var obs domain.Series

	if req.ToLatest {
		if s.provider == nil {
			return nil, fmt.Errorf("latest data requested without provider: %w", domain.ErrConfiguration)
		}
		rows, err := s.sync.LatestAvailable(ctx, symbol, meta.TrainedToDate)
		if err != nil {
			return nil, err
		}
		obs = append(obs, domain.ObservationsFromRows(rows)...)

		if req.CustomPrice == nil {
			price, err := s.provider.CurrentPrice(ctx, symbol)
			if err != nil {
				return nil, fmt.Errorf("current price: %w", err)
			}
			obs = append(obs, domain.NewObservation(today, float32(price)))
		}
	}

	if req.CustomPrice != nil {
		kept := obs[:0]
		for _, o := range obs {
			if o.Date.Before(today) {
				kept = append(kept, o)
			}
		}
		obs = append(kept, domain.NewObservation(today, float32(*req.CustomPrice)))
	}

	return obs.Normalize().After(meta.TrainedToDate), nil
}

// writePredictionDataset copia <symbol>.csv a <symbol>_prediction_dataset.csv
// y le añade las observaciones nuevas. El dataset original no se modifica.
func (s *Service) writePredictionDataset(symbol string, newObs domain.Series) {
	src := datasync.DatasetPath(s.dataDir, symbol)
	dst := s.output(symbol, "prediction_dataset")

	exists, err := s.files.Exists(src)
	if err != nil || !exists {
		slog.Warn("dataset not found, skipping prediction dataset", "path", src, "err", err)
		return
	}
	if err := s.files.Copy(src, dst); err != nil {
		slog.Warn("prediction dataset copy failed", "err", err)
		return
	}
	if len(newObs) == 0 {
		return
	}
	if err := s.sync.MergeObservations(dst, dst, newObs); err != nil {
		slog.Warn("prediction dataset merge failed", "err", err)
	}
}

// output devuelve <dataDir>/<SYMBOL>_<kind>.csv.
func (s *Service) output(symbol, kind string) string {
	return filepath.Join(s.dataDir, symbol+"_"+kind+".csv")
}
