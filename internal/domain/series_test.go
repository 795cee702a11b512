package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSeries(n int) Series {
	s := make(Series, n)
	start := day("2024-01-01")
	for i := range s {
		s[i] = Observation{Date: start.AddDate(0, 0, i), Value: float32(100 + i)}
	}
	return s
}

func TestSeries_Split(t *testing.T) {
	s := makeSeries(10)
	training, test := s.Split(3)

	require.Len(t, training, 7)
	require.Len(t, test, 3)
	assert.Equal(t, s[7], test[0])
	assert.Equal(t, s[6], training[6])

	// copias independientes
	test[0].Value = -1
	assert.Equal(t, float32(107), s[7].Value)
}

func TestSeries_Split_Bounds(t *testing.T) {
	s := makeSeries(4)
	training, test := s.Split(10)
	assert.Empty(t, training)
	assert.Len(t, test, 4)
}

func TestSeries_Normalize(t *testing.T) {
	s := Series{
		{Date: day("2024-01-03"), Value: 3},
		{Date: day("2024-01-01"), Value: 1},
		{Date: day("2024-01-03"), Value: 33},
		{Date: day("2024-01-02"), Value: 2},
	}
	n := s.Normalize()

	require.Len(t, n, 3)
	assert.Equal(t, day("2024-01-01"), n[0].Date)
	assert.Equal(t, float32(33), n[2].Value, "la última ocurrencia gana")
}

func TestSeries_SinceAndAfter(t *testing.T) {
	s := makeSeries(5)
	assert.Len(t, s.Since(day("2024-01-03")), 3)
	assert.Len(t, s.After(day("2024-01-03")), 2)
}

func TestSeries_PercentChanges(t *testing.T) {
	s := Series{
		{Date: day("2024-01-01"), Value: 100},
		{Date: day("2024-01-02"), Value: 110},
		{Date: day("2024-01-03"), Value: 99},
	}
	pct := s.PercentChanges(1)

	require.Len(t, pct, 2)
	assert.Equal(t, day("2024-01-02"), pct[0].Date)
	assert.InDelta(t, 10.0, pct[0].Value, 1e-4)
	assert.InDelta(t, -10.0, pct[1].Value, 1e-4)
}

func TestPercentChange_Zero(t *testing.T) {
	assert.Equal(t, float32(0), PercentChange(0, 10))
	assert.Equal(t, float32(-100), PercentChange(10, 0))
}
