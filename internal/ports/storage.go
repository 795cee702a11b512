package ports

import (
	"context"

	"github.com/alejandrodnm/forecaster/internal/domain"
)

// Storage persiste el histórico de entrenamientos y predicciones.
type Storage interface {
	// SaveRun registra un entrenamiento completado.
	SaveRun(ctx context.Context, run domain.TrainingRun) error

	// GetRuns devuelve los últimos entrenamientos del símbolo, más recientes
	// primero. symbol vacío devuelve todos.
	GetRuns(ctx context.Context, symbol string, limit int) ([]domain.TrainingRun, error)

	// SavePrediction registra una predicción y sus puntos.
	SavePrediction(ctx context.Context, rec domain.PredictionRecord) error

	// GetPredictions devuelve las últimas predicciones del símbolo con sus puntos.
	GetPredictions(ctx context.Context, symbol string, limit int) ([]domain.PredictionRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
