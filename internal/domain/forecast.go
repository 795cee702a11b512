package domain

import (
	"fmt"
	"time"
)

// FitParams son los parámetros de un fit del engine de forecasting.
type FitParams struct {
	WindowSize      int
	SeriesLength    int
	TrainSize       int
	Horizon         int
	ConfidenceLevel float64
}

func (p FitParams) String() string {
	return fmt.Sprintf("window=%d series=%d train=%d horizon=%d conf=%.2f",
		p.WindowSize, p.SeriesLength, p.TrainSize, p.Horizon, p.ConfidenceLevel)
}

// Forecast es la salida cruda del engine: forecast puntual y bandas de
// confianza, alineados por índice.
type Forecast struct {
	Values []float32
	Lower  []float32
	Upper  []float32
}

// Len devuelve el número de pasos del forecast.
func (f Forecast) Len() int {
	return min(len(f.Values), len(f.Lower), len(f.Upper))
}

// ForecastPoint es un paso del horizonte de forecast.
type ForecastPoint struct {
	Date             time.Time
	Forecast         float32
	LowerBound       float32
	UpperBound       float32
	BoundsDifference float64
}

// NewForecastPoint calcula BoundsDifference = (upper - lower) / 2.
func NewForecastPoint(date time.Time, forecast, lower, upper float32) ForecastPoint {
	return ForecastPoint{
		Date:             date,
		Forecast:         forecast,
		LowerBound:       lower,
		UpperBound:       upper,
		BoundsDifference: (float64(upper) - float64(lower)) / 2.0,
	}
}

// ChainForecast encadena los pasos del forecast día a día a partir del ancla:
// el punto i tiene fecha anchor + (i+1) días. horizon <= 0 usa todo el forecast.
func ChainForecast(anchor time.Time, f Forecast, horizon int) []ForecastPoint {
	n := f.Len()
	if horizon > 0 && horizon < n {
		n = horizon
	}
	anchor = DateOnly(anchor)
	points := make([]ForecastPoint, 0, n)
	for i := 0; i < n; i++ {
		date := anchor.AddDate(0, 0, i+1)
		points = append(points, NewForecastPoint(date, f.Values[i], f.Lower[i], f.Upper[i]))
	}
	return points
}

// PredictionResult es el resultado del pipeline de predicción.
type PredictionResult struct {
	Metadata        ModelMetadata
	TrainedToDate   time.Time
	NewObservations Series
	Points          []ForecastPoint
}
