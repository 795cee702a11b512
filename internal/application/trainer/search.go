package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
)

const (
	minWindowSize          = 2
	defaultConfidenceLevel = 0.95
)

// SearchConfig contiene la configuración del grid search.
type SearchConfig struct {
	Workers         int     // goroutines para evaluar celdas (0 = NumCPU)
	ConfidenceLevel float64 // nivel de las bandas de forecast (0 = 0.95)
}

// Search es el grid search de hiperparámetros (horizonte × ventana).
type Search struct {
	cfg    SearchConfig
	engine ports.ForecastEngine
}

// NewSearch crea un Search sobre el engine dado.
func NewSearch(cfg SearchConfig, engine ports.ForecastEngine) *Search {
	if cfg.ConfidenceLevel <= 0 || cfg.ConfidenceLevel >= 1 {
		cfg.ConfidenceLevel = defaultConfidenceLevel
	}
	return &Search{cfg: cfg, engine: engine}
}

// Train recorre h ∈ [minHorizon, maxSeriesLength) × w ∈ [2, maxSeriesLength).
// Para cada celda separa los últimos h puntos como test, ajusta con ventana w
// y evalúa. Devuelve la celda de menor MAE; ante empate gana la primera en
// orden de candidatos (h menor, luego w menor). Solo se retiene la mejor
// celda mientras avanza el grid. Las celdas que fallan se descartan; si
// fallan todas devuelve domain.ErrTrainingFailed.
func (s *Search) Train(ctx context.Context, series domain.Series, minHorizon, maxSeriesLength int) (*EvaluationResult, error) {
	if err := validate(len(series), minHorizon, maxSeriesLength); err != nil {
		return nil, fmt.Errorf("trainer.Train: %w", err)
	}

	start := time.Now()
	cells := s.candidates(len(series), minHorizon, maxSeriesLength)

	reducer := &cellReducer{onFail: func(i int, err error) {
		slog.Debug("grid cell failed",
			"horizon", cells[i].Horizon,
			"window_size", cells[i].WindowSize,
			"err", err,
		)
	}}
	err := evaluateCellsConcurrent(ctx, cells, s.cfg.Workers, reducer, func(p domain.FitParams) (*EvaluationResult, error) {
		return s.evaluateCell(series, p)
	})
	if err != nil {
		return nil, fmt.Errorf("trainer.Train: %w", err)
	}
	best, failed := reducer.best, reducer.failed

	if best == nil {
		return nil, fmt.Errorf("trainer.Train: all %d cells failed (horizon %d..%d, series length %d): %w",
			len(cells), minHorizon, maxSeriesLength-1, maxSeriesLength, domain.ErrTrainingFailed)
	}

	best.CellsEvaluated = len(cells)
	best.CellsFailed = failed

	slog.Info("grid search complete",
		"cells", len(cells),
		"failed", failed,
		"horizon", best.Horizon(),
		"window_size", best.WindowSize(),
		"mae", best.Metrics.MeanAbsoluteError,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return best, nil
}

// evaluateCell ajusta y evalúa una celda. El split produce copias
// independientes, así que las celdas no comparten estado.
func (s *Search) evaluateCell(series domain.Series, p domain.FitParams) (*EvaluationResult, error) {
	training, test := series.Split(p.Horizon)
	p.TrainSize = len(training)

	model, err := s.engine.Fit(training.Values(), p)
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", p, err)
	}
	res, err := Evaluate(model, training, test, p)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", p, err)
	}
	return res, nil
}

// candidates enumera las celdas en orden h-major, w ascendente.
func (s *Search) candidates(n, minHorizon, maxSeriesLength int) []domain.FitParams {
	var cells []domain.FitParams
	for h := minHorizon; h < maxSeriesLength && h < n; h++ {
		for w := minWindowSize; w < maxSeriesLength; w++ {
			cells = append(cells, domain.FitParams{
				WindowSize:      w,
				SeriesLength:    maxSeriesLength,
				TrainSize:       n - h,
				Horizon:         h,
				ConfidenceLevel: s.cfg.ConfidenceLevel,
			})
		}
	}
	return cells
}

// validate comprueba los hiperparámetros antes de cualquier fit.
func validate(n, minHorizon, maxSeriesLength int) error {
	switch {
	case minHorizon < 1:
		return fmt.Errorf("horizon %d < 1: %w", minHorizon, domain.ErrConfiguration)
	case minHorizon >= maxSeriesLength:
		return fmt.Errorf("horizon %d >= series length %d: %w", minHorizon, maxSeriesLength, domain.ErrConfiguration)
	case maxSeriesLength <= minWindowSize:
		return fmt.Errorf("series length %d leaves no window sizes: %w", maxSeriesLength, domain.ErrConfiguration)
	case minHorizon >= n:
		return fmt.Errorf("horizon %d >= %d observations: %w", minHorizon, n, domain.ErrConfiguration)
	}
	return nil
}
