package predictor

import (
	"fmt"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
)

// Predict genera el forecast de un modelo cargado.
//
// Con observaciones nuevas las incorpora en orden y ancla el forecast en la
// última fecha incorporada, que pasa a ser el TrainedToDate efectivo del
// resultado. Sin ellas ancla en meta.TrainedToDate. En ambos casos devuelve
// meta.Horizon puntos encadenados día a día.
func Predict(model ports.FittedModel, meta domain.ModelMetadata, newObs domain.Series) (domain.PredictionResult, error) {
	anchor := meta.TrainedToDate

	var (
		f   domain.Forecast
		err error
	)
	if len(newObs) == 0 {
		if f, err = model.Forecast(); err != nil {
			return domain.PredictionResult{}, fmt.Errorf("predictor.Predict: forecast: %w", err)
		}
	} else {
		for _, o := range newObs {
			if f, err = model.Fold(o.Value); err != nil {
				return domain.PredictionResult{}, fmt.Errorf("predictor.Predict: fold %s: %w",
					o.Date.Format(domain.DateLayout), err)
			}
			anchor = o.Date
		}
	}

	return domain.PredictionResult{
		Metadata:        meta,
		TrainedToDate:   anchor,
		NewObservations: newObs,
		Points:          domain.ChainForecast(anchor, f, meta.Horizon),
	}, nil
}
