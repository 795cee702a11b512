package predictor_test

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/forecaster/internal/adapters/dataset"
	"github.com/alejandrodnm/forecaster/internal/adapters/modelrepo"
	"github.com/alejandrodnm/forecaster/internal/adapters/notify"
	"github.com/alejandrodnm/forecaster/internal/adapters/ssa"
	"github.com/alejandrodnm/forecaster/internal/adapters/storage"
	"github.com/alejandrodnm/forecaster/internal/application/datasync"
	"github.com/alejandrodnm/forecaster/internal/application/predictor"
	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetDays = 40

var now = time.Date(2024, 2, 12, 15, 0, 0, 0, time.UTC)

// mockProvider devuelve filas fijas y un precio actual fijo.
type mockProvider struct {
	rows       []domain.RawMarketRow
	price      float64
	priceCalls int
	fetchCalls int
	lastStart  time.Time
}

func (m *mockProvider) FetchHistorical(_ context.Context, _ string, start time.Time) ([]domain.RawMarketRow, error) {
	m.fetchCalls++
	m.lastStart = start
	return m.rows, nil
}

func (m *mockProvider) CurrentPrice(context.Context, string) (float64, error) {
	m.priceCalls++
	return m.price, nil
}

func closeAt(i int) float64 {
	return 100 + 0.5*float64(i) + 5*math.Sin(2*math.Pi*float64(i)/7)
}

type fixture struct {
	fs       afero.Fs
	db       *storage.SQLiteStorage
	out      *bytes.Buffer
	provider *mockProvider
	service  *predictor.Service
}

// newFixture escribe un dataset de 40 días (2024-01-01..2024-02-09) y guarda
// un modelo SSA entrenado con él.
func newFixture(t *testing.T) fixture {
	t.Helper()
	fs := afero.NewMemMapFs()

	start := day("2024-01-01")
	var sb strings.Builder
	sb.WriteString(domain.DatasetHeader + "\n")
	values := make([]float32, datasetDays)
	for i := datasetDays - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%s,,,,%.4f,,,\n", start.AddDate(0, 0, i).Format(domain.DateLayout), closeAt(i))
		values[i] = float32(closeAt(i))
	}
	require.NoError(t, afero.WriteFile(fs, "/data/BTCUSD.csv", []byte(sb.String()), 0o644))

	engine := ssa.NewEngine()
	params := domain.FitParams{WindowSize: 7, SeriesLength: 30, TrainSize: datasetDays, Horizon: 4, ConfidenceLevel: 0.95}
	model, err := engine.Fit(values, params)
	require.NoError(t, err)

	repo := modelrepo.New(fs, "/models")
	repo.SetClock(func() time.Time { return now.Add(-time.Hour) })
	_, err = repo.Save("BTCUSD", model.Checkpoint, domain.ModelMetadata{
		TrainedFromDate: start,
		TrainedToDate:   start.AddDate(0, 0, datasetDays-1),
		WindowSize:      params.WindowSize,
		Horizon:         params.Horizon,
		SeriesLength:    params.SeriesLength,
	})
	require.NoError(t, err)

	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	provider := &mockProvider{price: 130}
	files := dataset.NewStore(fs)
	sync := datasync.New(files, provider)
	sync.SetClock(func() time.Time { return now })

	var out bytes.Buffer
	svc := predictor.NewService("/data", engine, repo, files, sync, provider, db, notify.NewConsoleWriter(&out, true))
	svc.SetClock(func() time.Time { return now })

	return fixture{fs: fs, db: db, out: &out, provider: provider, service: svc}
}

func readLines(t *testing.T, fs afero.Fs, path string) []string {
	t.Helper()
	b, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestService_Run_NoNewData(t *testing.T) {
	f := newFixture(t)

	res, err := f.service.Run(context.Background(), predictor.Request{Symbol: "btcusd"})
	require.NoError(t, err)

	require.Len(t, res.Points, 4)
	assert.Equal(t, day("2024-02-10"), res.Points[0].Date)
	assert.Empty(t, res.NewObservations)
	assert.Zero(t, f.provider.fetchCalls)
	assert.Zero(t, f.provider.priceCalls)

	lines := readLines(t, f.fs, "/data/BTCUSD_prediction_forecast.csv")
	assert.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[1], "2024-02-10,"))

	copied := readLines(t, f.fs, "/data/BTCUSD_prediction_dataset.csv")
	assert.Len(t, copied, datasetDays+1)

	assert.Contains(t, f.out.String(), "BTCUSD")
}

func TestService_Run_ToLatest(t *testing.T) {
	f := newFixture(t)
	f.provider.rows = []domain.RawMarketRow{
		{Date: day("2024-02-10"), Close: closeAt(40)},
		{Date: day("2024-02-11"), Close: closeAt(41)},
	}

	res, err := f.service.Run(context.Background(), predictor.Request{Symbol: "BTCUSD", ToLatest: true})
	require.NoError(t, err)

	assert.Equal(t, day("2024-02-10"), f.provider.lastStart)
	assert.Equal(t, 1, f.provider.priceCalls)
	require.Len(t, res.NewObservations, 3)
	assert.Equal(t, day("2024-02-12"), res.NewObservations[2].Date)
	assert.Equal(t, float32(130), res.NewObservations[2].Value)
	assert.Equal(t, day("2024-02-13"), res.Points[0].Date, "anchored at today")
	assert.Equal(t, day("2024-02-12"), res.TrainedToDate)
	assert.Contains(t, f.out.String(), "model trained to 2024-02-12")

	// el dataset original no cambia; la copia recibe las observaciones nuevas
	assert.Len(t, readLines(t, f.fs, "/data/BTCUSD.csv"), datasetDays+1)
	copied := readLines(t, f.fs, "/data/BTCUSD_prediction_dataset.csv")
	require.Len(t, copied, datasetDays+1+3)
	assert.Equal(t, domain.DatasetHeader, copied[0])
	assert.True(t, strings.HasPrefix(copied[1], "2024-02-12,"), "descending order")

	recs, err := f.db.GetPredictions(context.Background(), "BTCUSD", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 3, recs[0].NewObservations)
	assert.Equal(t, day("2024-02-12"), recs[0].TrainedToDate.UTC())
	assert.Len(t, recs[0].Points, 4)
}

func TestService_Run_CustomPrice(t *testing.T) {
	f := newFixture(t)
	price := 125.0

	res, err := f.service.Run(context.Background(), predictor.Request{Symbol: "BTCUSD", CustomPrice: &price})
	require.NoError(t, err)

	require.Len(t, res.NewObservations, 1)
	assert.Equal(t, day("2024-02-12"), res.NewObservations[0].Date)
	assert.Equal(t, float32(125), res.NewObservations[0].Value)
	assert.Zero(t, f.provider.priceCalls)
}

func TestService_Run_CustomPriceReplacesToday(t *testing.T) {
	f := newFixture(t)
	f.provider.rows = []domain.RawMarketRow{
		{Date: day("2024-02-10"), Close: closeAt(40)},
		{Date: day("2024-02-11"), Close: closeAt(41)},
		{Date: day("2024-02-12"), Close: 999},
	}
	price := 125.0

	res, err := f.service.Run(context.Background(), predictor.Request{Symbol: "BTCUSD", ToLatest: true, CustomPrice: &price})
	require.NoError(t, err)

	require.Len(t, res.NewObservations, 3)
	last := res.NewObservations[2]
	assert.Equal(t, day("2024-02-12"), last.Date)
	assert.Equal(t, float32(125), last.Value)
	assert.Zero(t, f.provider.priceCalls, "custom price skips the current price lookup")
}

func TestService_Run_NoModel(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Run(context.Background(), predictor.Request{Symbol: "ETHUSD"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataNotFound)

	exists, _ := afero.Exists(f.fs, "/data/ETHUSD_prediction_forecast.csv")
	assert.False(t, exists)
}

func TestService_Run_CorruptModel(t *testing.T) {
	f := newFixture(t)
	blobs, err := afero.Glob(f.fs, "/models/BTCUSD_*/*.model")
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	require.NoError(t, afero.WriteFile(f.fs, blobs[0], []byte("garbage"), 0o644))

	_, err = f.service.Run(context.Background(), predictor.Request{Symbol: "BTCUSD"})
	assert.ErrorIs(t, err, domain.ErrModelLoad)
}

func TestService_Run_EmptySymbol(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Run(context.Background(), predictor.Request{Symbol: "  "})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
