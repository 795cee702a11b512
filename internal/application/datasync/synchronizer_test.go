package datasync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/forecaster/internal/adapters/dataset"
	"github.com/alejandrodnm/forecaster/internal/application/datasync"
	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type fetchCall struct {
	symbol string
	start  time.Time
}

type mockProvider struct {
	rows  []domain.RawMarketRow
	err   error
	calls []fetchCall
}

func (m *mockProvider) FetchHistorical(_ context.Context, symbol string, start time.Time) ([]domain.RawMarketRow, error) {
	m.calls = append(m.calls, fetchCall{symbol: symbol, start: start})
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.RawMarketRow
	for _, r := range m.rows {
		if !r.Date.Before(start) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockProvider) CurrentPrice(context.Context, string) (float64, error) {
	return 0, errors.New("not used")
}

// --- helpers ---

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func row(date string, closePrice float64) domain.RawMarketRow {
	return domain.RawMarketRow{Date: day(date), High: closePrice + 1, Low: closePrice - 1, Close: closePrice, Volume: 10}
}

const existing = `Date,High,Low,Mid,Close,Bid,Ask,Volume
2024-01-03,11,9,,10,,,10
2024-01-02,10,8,,9,,,10
2024-01-01,9,7,,8,,,10
`

func setup(t *testing.T, provider *mockProvider, now time.Time) (*datasync.Synchronizer, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/BTCUSD.csv", []byte(existing), 0o644))
	s := datasync.New(dataset.NewStore(fs), provider)
	s.SetClock(func() time.Time { return now })
	return s, fs
}

func read(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	b, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(b)
}

// --- tests ---

func TestMerge_OverwriteAndAppend(t *testing.T) {
	s, fs := setup(t, nil, time.Now())

	err := s.Merge("/data/BTCUSD.csv", "/data/BTCUSD.csv", []domain.RawMarketRow{
		row("2024-01-03", 42),
		row("2024-01-04", 43),
	})
	require.NoError(t, err)

	want := `Date,High,Low,Mid,Close,Bid,Ask,Volume
2024-01-04,44,42,,43,,,10
2024-01-03,43,41,,42,,,10
2024-01-02,10,8,,9,,,10
2024-01-01,9,7,,8,,,10
`
	assert.Equal(t, want, read(t, fs, "/data/BTCUSD.csv"))
}

func TestMerge_Idempotent(t *testing.T) {
	s, fs := setup(t, nil, time.Now())
	rows := []domain.RawMarketRow{row("2024-01-04", 43), row("2024-01-02", 99)}

	require.NoError(t, s.Merge("/data/BTCUSD.csv", "/data/BTCUSD.csv", rows))
	once := read(t, fs, "/data/BTCUSD.csv")
	require.NoError(t, s.Merge("/data/BTCUSD.csv", "/data/BTCUSD.csv", rows))

	assert.Equal(t, once, read(t, fs, "/data/BTCUSD.csv"))
}

func TestMerge_ToOtherFileKeepsSource(t *testing.T) {
	s, fs := setup(t, nil, time.Now())

	require.NoError(t, s.MergeObservations("/data/BTCUSD.csv", "/data/BTCUSD_prediction_dataset.csv", domain.Series{
		domain.NewObservation(day("2024-01-05"), 50.5),
	}))

	assert.Equal(t, existing, read(t, fs, "/data/BTCUSD.csv"))
	out := read(t, fs, "/data/BTCUSD_prediction_dataset.csv")
	assert.Contains(t, out, "2024-01-05,,,,50.5,,,\n2024-01-03,")
}

func TestMerge_MissingSource(t *testing.T) {
	s, _ := setup(t, nil, time.Now())
	err := s.Merge("/data/NOPE.csv", "/data/NOPE.csv", nil)
	assert.ErrorIs(t, err, domain.ErrDataNotFound)
}

func TestLatestAvailable_Stale(t *testing.T) {
	p := &mockProvider{rows: []domain.RawMarketRow{row("2024-01-04", 1), row("2024-01-05", 2)}}
	s, _ := setup(t, p, day("2024-01-06").Add(10*time.Hour))

	rows, err := s.LatestAvailable(context.Background(), "BTCUSD", day("2024-01-03"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	require.Len(t, p.calls, 1)
	assert.Equal(t, day("2024-01-04"), p.calls[0].start)
}

func TestLatestAvailable_FreshSkipsProvider(t *testing.T) {
	p := &mockProvider{}
	s, _ := setup(t, p, day("2024-01-04").Add(8*time.Hour))

	rows, err := s.LatestAvailable(context.Background(), "BTCUSD", day("2024-01-03"))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, p.calls)
}

func TestUpdateToLatest(t *testing.T) {
	p := &mockProvider{rows: []domain.RawMarketRow{row("2024-01-04", 11), row("2024-01-05", 12)}}
	s, fs := setup(t, p, day("2024-01-06"))

	n, err := s.UpdateToLatest(context.Background(), "BTCUSD", "/data/BTCUSD.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	header, rows, err := dataset.NewStore(fs).ReadLines("/data/BTCUSD.csv")
	require.NoError(t, err)
	assert.Equal(t, domain.DatasetHeader, header)
	require.Len(t, rows, 5)
	assert.Equal(t, day("2024-01-05"), rows[0].Date)
}

func TestUpdateToLatest_ProviderError(t *testing.T) {
	boom := errors.New("provider down")
	s, fs := setup(t, &mockProvider{err: boom}, day("2024-02-01"))

	_, err := s.UpdateToLatest(context.Background(), "BTCUSD", "/data/BTCUSD.csv")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, existing, read(t, fs, "/data/BTCUSD.csv"))
}

func TestEnsureDataset_FetchesEverythingWhenMissing(t *testing.T) {
	p := &mockProvider{rows: []domain.RawMarketRow{row("2024-01-01", 1), row("2024-01-02", 2)}}
	s, fs := setup(t, p, day("2024-01-03"))

	require.NoError(t, s.EnsureDataset(context.Background(), "ETHUSD", "/data/ETHUSD.csv"))
	require.Len(t, p.calls, 1)
	assert.Equal(t, time.Unix(0, 0).UTC(), p.calls[0].start)

	out := read(t, fs, "/data/ETHUSD.csv")
	assert.Equal(t, domain.DatasetHeader+"\n2024-01-02,3,1,,2,,,10\n2024-01-01,2,0,,1,,,10\n", out)
}

func TestEnsureDataset_ExistingIsUntouched(t *testing.T) {
	p := &mockProvider{}
	s, _ := setup(t, p, day("2024-01-03"))

	require.NoError(t, s.EnsureDataset(context.Background(), "BTCUSD", "/data/BTCUSD.csv"))
	assert.Empty(t, p.calls)
}

func TestEnsureDataset_NoRows(t *testing.T) {
	s, _ := setup(t, &mockProvider{}, day("2024-01-03"))
	err := s.EnsureDataset(context.Background(), "ETHUSD", "/data/ETHUSD.csv")
	assert.ErrorIs(t, err, domain.ErrDataNotFound)
}

func TestDatasetPath(t *testing.T) {
	assert.Equal(t, "/data/BTCUSD.csv", datasync.DatasetPath("/data", "btcusd"))
}
