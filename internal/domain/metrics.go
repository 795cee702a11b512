package domain

import (
	"fmt"
	"math"
)

// Metrics son las medidas de error de un forecast contra los datos reales.
type Metrics struct {
	// MeanForecastError es la media con signo. Distinto de 0 indica sesgo:
	// negativo = sobre-forecast, positivo = sub-forecast.
	MeanForecastError float64
	// MeanAbsoluteError es el criterio de selección de modelo.
	MeanAbsoluteError float64
	// MeanSquaredError penaliza los errores grandes. 0 = perfecto.
	MeanSquaredError float64
	// Errors son los residuos actual - forecast, índice a índice.
	Errors []float64
}

// RootMeanSquaredError devuelve √MSE.
func (m Metrics) RootMeanSquaredError() float64 {
	return math.Sqrt(m.MeanSquaredError)
}

// ComputeMetrics compara actual[i] con forecast[i].
//
//	error[i] = actual[i] - forecast[i]
//	MFE      = mean(error)
//	MAE      = mean(|error|)
//	MSE      = mean(error²)
//
// Los slices deben tener la misma longitud y no estar vacíos.
func ComputeMetrics(actual, forecast []float32) (Metrics, error) {
	if len(actual) == 0 {
		return Metrics{}, fmt.Errorf("domain.ComputeMetrics: empty input")
	}
	if len(actual) != len(forecast) {
		return Metrics{}, fmt.Errorf("domain.ComputeMetrics: %d actual values vs %d forecasts",
			len(actual), len(forecast))
	}

	errs := make([]float64, len(actual))
	var sum, sumAbs, sumSq float64
	for i := range actual {
		e := float64(actual[i]) - float64(forecast[i])
		errs[i] = e
		sum += e
		sumAbs += math.Abs(e)
		sumSq += e * e
	}

	n := float64(len(errs))
	return Metrics{
		MeanForecastError: sum / n,
		MeanAbsoluteError: sumAbs / n,
		MeanSquaredError:  sumSq / n,
		Errors:            errs,
	}, nil
}
