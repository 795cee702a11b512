package storage

// sqlite.go — histórico de entrenamientos y predicciones.
//
// Estrategia:
//   - `training_runs`: una fila por entrenamiento completado, con la metadata
//     del modelo ganador y la ruta del blob. Nunca se cargan modelos desde aquí:
//     la fuente de verdad del modelo son los ficheros del repositorio.
//   - `predictions` + `prediction_points`: cabecera y puntos de cada predicción.
//   - Prune automático al arrancar: predicciones > 180d. Los entrenamientos se
//     conservan siempre.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS training_runs (
    id                  TEXT PRIMARY KEY,
    symbol              TEXT     NOT NULL,
    trained_at          DATETIME NOT NULL,
    trained_from        DATETIME NOT NULL,
    trained_to          DATETIME NOT NULL,
    window_size         INTEGER  NOT NULL,
    horizon             INTEGER  NOT NULL,
    series_length       INTEGER  NOT NULL,
    mean_forecast_error REAL     NOT NULL DEFAULT 0,
    mean_absolute_error REAL     NOT NULL DEFAULT 0,
    mean_squared_error  REAL     NOT NULL DEFAULT 0,
    model_path          TEXT     NOT NULL,
    cells_evaluated     INTEGER  NOT NULL DEFAULT 0,
    cells_failed        INTEGER  NOT NULL DEFAULT 0,
    duration_ms         INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS predictions (
    id               TEXT PRIMARY KEY,
    symbol           TEXT     NOT NULL,
    created_at       DATETIME NOT NULL,
    trained_to       DATETIME NOT NULL,
    new_observations INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS prediction_points (
    prediction_id     TEXT     NOT NULL REFERENCES predictions(id) ON DELETE CASCADE,
    step              INTEGER  NOT NULL,
    date              DATETIME NOT NULL,
    forecast          REAL     NOT NULL,
    lower_bound       REAL     NOT NULL,
    upper_bound       REAL     NOT NULL,
    bounds_difference REAL     NOT NULL,
    PRIMARY KEY (prediction_id, step)
);

CREATE INDEX IF NOT EXISTS idx_runs_symbol_at ON training_runs(symbol, trained_at DESC);
CREATE INDEX IF NOT EXISTS idx_pred_symbol_at ON predictions(symbol, created_at DESC);
`

const retentionPredictions = 180 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

var _ ports.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia predicciones antiguas.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveRun registra un entrenamiento.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run domain.TrainingRun) error {
	m := run.Metadata
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO training_runs
			(id, symbol, trained_at, trained_from, trained_to, window_size, horizon,
			 series_length, mean_forecast_error, mean_absolute_error, mean_squared_error,
			 model_path, cells_evaluated, cells_failed, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Symbol,
		run.TrainedAt.UTC(),
		m.TrainedFromDate.UTC(),
		m.TrainedToDate.UTC(),
		m.WindowSize,
		m.Horizon,
		m.SeriesLength,
		m.MeanForecastError,
		m.MeanAbsoluteError,
		m.MeanSquaredError,
		run.ModelPath,
		run.CellsEvaluated,
		run.CellsFailed,
		run.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert %s: %w", run.ID, err)
	}
	return nil
}

// GetRuns devuelve los entrenamientos más recientes primero. symbol vacío
// devuelve todos los símbolos; limit <= 0 no limita.
func (s *SQLiteStorage) GetRuns(ctx context.Context, symbol string, limit int) ([]domain.TrainingRun, error) {
	if limit <= 0 {
		limit = -1 // SQLite: LIMIT -1 = sin límite
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, trained_at, trained_from, trained_to, window_size, horizon,
		       series_length, mean_forecast_error, mean_absolute_error, mean_squared_error,
		       model_path, cells_evaluated, cells_failed, duration_ms
		FROM training_runs
		WHERE (? = '' OR symbol = ?)
		ORDER BY trained_at DESC, id
		LIMIT ?
	`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.TrainingRun
	for rows.Next() {
		var run domain.TrainingRun
		var durationMs int64
		if err := rows.Scan(
			&run.ID,
			&run.Symbol,
			&run.TrainedAt,
			&run.Metadata.TrainedFromDate,
			&run.Metadata.TrainedToDate,
			&run.Metadata.WindowSize,
			&run.Metadata.Horizon,
			&run.Metadata.SeriesLength,
			&run.Metadata.MeanForecastError,
			&run.Metadata.MeanAbsoluteError,
			&run.Metadata.MeanSquaredError,
			&run.ModelPath,
			&run.CellsEvaluated,
			&run.CellsFailed,
			&durationMs,
		); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: scan row: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SavePrediction registra la cabecera y los puntos en una transacción.
func (s *SQLiteStorage) SavePrediction(ctx context.Context, rec domain.PredictionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SavePrediction: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO predictions (id, symbol, created_at, trained_to, new_observations) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Symbol, rec.CreatedAt.UTC(), rec.TrainedToDate.UTC(), rec.NewObservations,
	); err != nil {
		return fmt.Errorf("storage.SavePrediction: insert %s: %w", rec.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prediction_points
			(prediction_id, step, date, forecast, lower_bound, upper_bound, bounds_difference)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SavePrediction: prepare: %w", err)
	}
	defer stmt.Close()

	for i, p := range rec.Points {
		if _, err := stmt.ExecContext(ctx,
			rec.ID, i+1, p.Date.UTC(), p.Forecast, p.LowerBound, p.UpperBound, p.BoundsDifference,
		); err != nil {
			return fmt.Errorf("storage.SavePrediction: point %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SavePrediction: commit: %w", err)
	}
	return nil
}

// GetPredictions devuelve las predicciones más recientes primero, con sus puntos.
func (s *SQLiteStorage) GetPredictions(ctx context.Context, symbol string, limit int) ([]domain.PredictionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, created_at, trained_to, new_observations
		FROM predictions
		WHERE (? = '' OR symbol = ?)
		ORDER BY created_at DESC, id
		LIMIT ?
	`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetPredictions: query: %w", err)
	}

	var recs []domain.PredictionRecord
	for rows.Next() {
		var rec domain.PredictionRecord
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.CreatedAt, &rec.TrainedToDate, &rec.NewObservations); err != nil {
			rows.Close()
			return nil, fmt.Errorf("storage.GetPredictions: scan row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("storage.GetPredictions: rows: %w", err)
	}
	rows.Close() // MaxOpenConns=1: liberar la conexión antes de la siguiente query

	for i := range recs {
		points, err := s.predictionPoints(ctx, recs[i].ID)
		if err != nil {
			return nil, err
		}
		recs[i].Points = points
	}
	return recs, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func (s *SQLiteStorage) predictionPoints(ctx context.Context, id string) ([]domain.ForecastPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, forecast, lower_bound, upper_bound, bounds_difference
		FROM prediction_points
		WHERE prediction_id = ?
		ORDER BY step
	`, id)
	if err != nil {
		return nil, fmt.Errorf("storage.predictionPoints: query %s: %w", id, err)
	}
	defer rows.Close()

	var points []domain.ForecastPoint
	for rows.Next() {
		var p domain.ForecastPoint
		if err := rows.Scan(&p.Date, &p.Forecast, &p.LowerBound, &p.UpperBound, &p.BoundsDifference); err != nil {
			return nil, fmt.Errorf("storage.predictionPoints: scan row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// pruneOld elimina predicciones antiguas para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionPredictions)
	s.db.ExecContext(ctx, `DELETE FROM predictions WHERE created_at < ?`, cutoff)
}
