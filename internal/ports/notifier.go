package ports

import (
	"context"

	"github.com/alejandrodnm/forecaster/internal/domain"
)

// Reporter presenta los resultados al usuario.
type Reporter interface {
	// ReportTraining muestra el modelo ganador del grid search.
	ReportTraining(ctx context.Context, run domain.TrainingRun) error

	// ReportPrediction muestra los puntos de una predicción.
	ReportPrediction(ctx context.Context, symbol string, result domain.PredictionResult) error

	// ReportHistory muestra el histórico de entrenamientos.
	ReportHistory(ctx context.Context, runs []domain.TrainingRun) error
}
