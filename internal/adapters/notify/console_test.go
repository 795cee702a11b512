package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/forecaster/internal/adapters/notify"
	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRun() domain.TrainingRun {
	return domain.TrainingRun{
		ID:        "3f1c2a9b-0000-4000-8000-000000000000",
		Symbol:    "BTCUSD",
		TrainedAt: time.Date(2024, 1, 11, 9, 30, 0, 0, time.UTC),
		Metadata: domain.ModelMetadata{
			TrainedFromDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			TrainedToDate:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			WindowSize:        7,
			Horizon:           4,
			SeriesLength:      30,
			MeanForecastError: -12.5,
			MeanAbsoluteError: 321.125,
			MeanSquaredError:  99000,
		},
		ModelPath:      "/models/BTCUSD_240111_093000/BTCUSD_240111_093000.model",
		CellsEvaluated: 100,
		CellsFailed:    3,
		Duration:       2 * time.Second,
	}
}

func TestConsole_ReportTraining_Table(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, c.ReportTraining(context.Background(), makeRun()))

	out := buf.String()
	assert.Contains(t, out, "TRAINING — BTCUSD")
	assert.Contains(t, out, "321.1250")
	assert.Contains(t, out, "2024-01-10")
	assert.Contains(t, out, "97/100")
	assert.Contains(t, out, "over-forecast")
	assert.Contains(t, out, "BTCUSD_240111_093000.model")
}

func TestConsole_ReportTraining_Compact(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, c.ReportTraining(context.Background(), makeRun()))
	out := buf.String()
	assert.Contains(t, out, "w=7 h=4 sl=30")
	assert.Contains(t, out, "MAE=321.1250")
}

func TestConsole_ReportPrediction(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	result := domain.PredictionResult{
		Metadata:      makeRun().Metadata,
		TrainedToDate: day,
		Points: []domain.ForecastPoint{
			domain.NewForecastPoint(day.AddDate(0, 0, 1), 100, 90, 110),
			domain.NewForecastPoint(day.AddDate(0, 0, 2), 101, 89, 113),
		},
	}
	require.NoError(t, c.ReportPrediction(context.Background(), "BTCUSD", result))

	out := buf.String()
	assert.Contains(t, out, "FORECAST — BTCUSD")
	assert.Contains(t, out, "2024-01-11")
	assert.Contains(t, out, "2024-01-12")
	assert.Contains(t, out, "101.0000")
	assert.Contains(t, out, "12.0000")
}

func TestConsole_ReportPrediction_Empty(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, c.ReportPrediction(context.Background(), "BTCUSD", domain.PredictionResult{}))
	assert.Contains(t, buf.String(), "no forecast points")
}

func TestConsole_ReportHistory(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, c.ReportHistory(context.Background(), []domain.TrainingRun{makeRun()}))
	out := buf.String()
	assert.Contains(t, out, "BTCUSD")
	assert.Contains(t, out, "3f1c2a9b")
	assert.NotContains(t, out, "3f1c2a9b-0000")
}

func TestConsole_ReportHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, c.ReportHistory(context.Background(), nil))
	assert.Contains(t, buf.String(), "No training runs recorded yet")
}
