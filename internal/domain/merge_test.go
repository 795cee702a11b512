package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(t *testing.T, raw ...string) []DatedLine {
	t.Helper()
	out := make([]DatedLine, 0, len(raw))
	for _, l := range raw {
		dl, err := ParseDatedLine(l)
		require.NoError(t, err)
		out = append(out, dl)
	}
	return out
}

func TestMergeRows_IncomingWins(t *testing.T) {
	existing := lines(t,
		"2024-01-02,10,9,,9.5,,,100",
		"2024-01-01,11,8,,9.0,,,90",
	)
	incoming := lines(t, "2024-01-02,,,,42,,,")

	merged, replaced := MergeRows(existing, incoming)

	require.Len(t, merged, 2)
	assert.Equal(t, "2024-01-02,,,,42,,,", merged[0].Line)
	assert.Equal(t, 1, replaced)
	for _, m := range merged {
		assert.NotContains(t, m.Line, "9.5")
	}
}

func TestMergeRows_UnionSortedDescending(t *testing.T) {
	existing := lines(t, "2024-01-01,a", "2024-01-03,c")
	incoming := lines(t, "2024-01-04,d", "2024-01-02,b")

	merged, replaced := MergeRows(existing, incoming)

	require.Len(t, merged, 4)
	assert.Zero(t, replaced)
	for i := 1; i < len(merged); i++ {
		assert.True(t, merged[i-1].Date.After(merged[i].Date))
	}
	assert.Equal(t, "2024-01-04,d", merged[0].Line)
	assert.Equal(t, "2024-01-01,a", merged[3].Line)
}

func TestMergeRows_Idempotent(t *testing.T) {
	existing := lines(t, "2024-01-01,a", "2024-01-02,b")
	incoming := lines(t, "2024-01-02,B", "2024-01-03,C")

	once, _ := MergeRows(existing, incoming)
	twice, replaced := MergeRows(once, incoming)

	assert.Equal(t, once, twice)
	assert.Zero(t, replaced)
}

func TestParseDatedLine_BadDate(t *testing.T) {
	_, err := ParseDatedLine("not-a-date,1,2")
	assert.Error(t, err)
}

func TestObservationCSV_ReducedShape(t *testing.T) {
	o := NewObservation(day("2024-03-05"), 123.25)
	assert.Equal(t, "2024-03-05,,,,123.25,,,", ObservationCSV(o))
}

func TestRawMarketRow_CSV_OptionalBlank(t *testing.T) {
	mid := 10.5
	r := RawMarketRow{Date: day("2024-03-05"), High: 11, Low: 10, Mid: &mid, Close: 10.75, Volume: 1234.5}
	assert.Equal(t, "2024-03-05,11,10,10.5,10.75,,,1234.5", r.CSV())
	assert.Equal(t, float32(10.75), r.Observation().Value)
}

func TestFetchStart(t *testing.T) {
	now := time.Date(2024, 5, 20, 15, 30, 0, 0, time.UTC)

	t.Run("stale three days", func(t *testing.T) {
		last := now.AddDate(0, 0, -3)
		start, stale := FetchStart(last, now)
		assert.True(t, stale)
		assert.Equal(t, day("2024-05-18"), start)
	})

	t.Run("same day", func(t *testing.T) {
		_, stale := FetchStart(now, now)
		assert.False(t, stale)
	})

	t.Run("yesterday is fresh", func(t *testing.T) {
		_, stale := FetchStart(now.AddDate(0, 0, -1), now)
		assert.False(t, stale)
	})

	t.Run("two days ago is stale", func(t *testing.T) {
		start, stale := FetchStart(now.AddDate(0, 0, -2), now)
		assert.True(t, stale)
		assert.Equal(t, day("2024-05-19"), start)
	})
}
