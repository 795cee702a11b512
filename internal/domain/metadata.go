package domain

import "time"

// ModelMetadata es el registro durable de la identidad y calidad de un modelo.
// Se serializa junto al blob del modelo con las mismas keys que los campos.
type ModelMetadata struct {
	TrainedFromDate   time.Time `json:"TrainedFromDate"`
	TrainedToDate     time.Time `json:"TrainedToDate"`
	WindowSize        int       `json:"WindowSize"`
	Horizon           int       `json:"Horizon"`
	SeriesLength      int       `json:"SeriesLength"`
	MeanForecastError float64   `json:"MeanForecastError"`
	MeanAbsoluteError float64   `json:"MeanAbsoluteError"`
	MeanSquaredError  float64   `json:"MeanSquaredError"`
}

// TrainingRun es una fila del histórico de entrenamientos.
type TrainingRun struct {
	ID             string
	Symbol         string
	TrainedAt      time.Time
	Metadata       ModelMetadata
	ModelPath      string
	CellsEvaluated int
	CellsFailed    int
	Duration       time.Duration
}

// PredictionRecord es una fila del histórico de predicciones.
type PredictionRecord struct {
	ID              string
	Symbol          string
	CreatedAt       time.Time
	TrainedToDate   time.Time
	NewObservations int
	Points          []ForecastPoint
}
