package trainer

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
)

// EvaluationResult es un modelo ajustado junto a su calidad sobre el holdout.
type EvaluationResult struct {
	Model    ports.FittedModel
	Params   domain.FitParams
	Training domain.Series
	Test     domain.Series
	Metrics  domain.Metrics

	TrainedFromDate time.Time
	TrainedToDate   time.Time

	// Estadísticas del grid search que produjo el resultado.
	CellsEvaluated int
	CellsFailed    int

	finalized bool
}

// Horizon es el número de pasos de test y de forecast.
func (r *EvaluationResult) Horizon() int { return r.Params.Horizon }

// WindowSize es la ventana SSA del modelo.
func (r *EvaluationResult) WindowSize() int { return r.Params.WindowSize }

// Evaluate compara el forecast del modelo con el tramo de test.
//
//	TrainedFromDate = training[0]
//	TrainedToDate   = test[0] − 1 día
func Evaluate(model ports.FittedModel, training, test domain.Series, params domain.FitParams) (*EvaluationResult, error) {
	if len(training) == 0 || len(test) == 0 {
		return nil, fmt.Errorf("trainer.Evaluate: empty training (%d) or test (%d): %w",
			len(training), len(test), domain.ErrConfiguration)
	}

	f, err := model.Forecast()
	if err != nil {
		return nil, fmt.Errorf("trainer.Evaluate: forecast: %w", err)
	}
	if f.Len() < len(test) {
		return nil, fmt.Errorf("trainer.Evaluate: forecast has %d steps, test has %d: %w",
			f.Len(), len(test), domain.ErrNotConverged)
	}

	metrics, err := domain.ComputeMetrics(test.Values(), f.Values[:len(test)])
	if err != nil {
		return nil, fmt.Errorf("trainer.Evaluate: %w", err)
	}

	return &EvaluationResult{
		Model:           model,
		Params:          params,
		Training:        training,
		Test:            test,
		Metrics:         metrics,
		TrainedFromDate: training[0].Date,
		TrainedToDate:   test[0].Date.AddDate(0, 0, -1),
	}, nil
}

// Finalize entrena el modelo con el tramo de test ("train on test data").
//
// Devuelve el forecast del tramo de test (anclado en test[0] − 1 día) seguido
// del forecast hacia delante tras incorporar todo el test (anclado en
// test[last]). Avanza TrainedToDate a test[last] y añade el test al training.
// Solo puede ejecutarse una vez.
func (r *EvaluationResult) Finalize() ([]domain.ForecastPoint, error) {
	if r.finalized {
		return nil, fmt.Errorf("trainer.Finalize: already finalized: %w", domain.ErrConfiguration)
	}
	if len(r.Test) == 0 {
		return nil, fmt.Errorf("trainer.Finalize: no test data: %w", domain.ErrConfiguration)
	}

	backtest, err := r.Model.Forecast()
	if err != nil {
		return nil, fmt.Errorf("trainer.Finalize: forecast: %w", err)
	}
	points := domain.ChainForecast(r.Test[0].Date.AddDate(0, 0, -1), backtest, len(r.Test))

	var forward domain.Forecast
	for _, o := range r.Test {
		if forward, err = r.Model.Fold(o.Value); err != nil {
			return nil, fmt.Errorf("trainer.Finalize: fold %s: %w", o.Date.Format(domain.DateLayout), err)
		}
	}

	last := r.Test[len(r.Test)-1]
	points = append(points, domain.ChainForecast(last.Date, forward, r.Params.Horizon)...)

	r.Training = append(r.Training, r.Test...)
	r.TrainedToDate = last.Date
	r.finalized = true
	return points, nil
}

// Metadata devuelve el snapshot persistible del resultado.
func (r *EvaluationResult) Metadata() domain.ModelMetadata {
	return domain.ModelMetadata{
		TrainedFromDate:   r.TrainedFromDate,
		TrainedToDate:     r.TrainedToDate,
		WindowSize:        r.Params.WindowSize,
		Horizon:           r.Params.Horizon,
		SeriesLength:      r.Params.SeriesLength,
		MeanForecastError: r.Metrics.MeanForecastError,
		MeanAbsoluteError: r.Metrics.MeanAbsoluteError,
		MeanSquaredError:  r.Metrics.MeanSquaredError,
	}
}
