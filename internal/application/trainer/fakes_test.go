package trainer_test

import (
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
)

// fakeEngine produce forecasts "perfectos" para una serie lineal (x_t = t)
// desplazados por offset(p). offset < 0 hace fallar la celda.
type fakeEngine struct {
	fits   atomic.Int32
	offset func(p domain.FitParams) float32
}

func (e *fakeEngine) Fit(training []float32, p domain.FitParams) (ports.FittedModel, error) {
	e.fits.Add(1)
	off := float32(0)
	if e.offset != nil {
		off = e.offset(p)
	}
	if off < 0 {
		return nil, domain.ErrNotConverged
	}
	return &fakeModel{last: training[len(training)-1], offset: off, params: p}, nil
}

func (e *fakeEngine) Load(io.Reader) (ports.FittedModel, error) {
	return nil, errors.New("not implemented")
}

type fakeModel struct {
	last   float32
	offset float32
	params domain.FitParams
	folded []float32
}

func (m *fakeModel) Forecast() (domain.Forecast, error) {
	h := m.params.Horizon
	f := domain.Forecast{Values: make([]float32, h), Lower: make([]float32, h), Upper: make([]float32, h)}
	for k := 0; k < h; k++ {
		v := m.last + float32(k+1) + m.offset
		f.Values[k] = v
		f.Lower[k] = v - 1
		f.Upper[k] = v + 1
	}
	return f, nil
}

func (m *fakeModel) Fold(v float32) (domain.Forecast, error) {
	m.folded = append(m.folded, v)
	m.last = v
	return m.Forecast()
}

func (m *fakeModel) Params() domain.FitParams { return m.params }

func (m *fakeModel) Checkpoint(w io.Writer) error {
	_, err := w.Write([]byte("fake"))
	return err
}

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// linearSeries devuelve n observaciones diarias con valor = índice.
func linearSeries(n int) domain.Series {
	s := make(domain.Series, n)
	start := day("2024-01-01")
	for i := range s {
		s[i] = domain.Observation{Date: start.AddDate(0, 0, i), Value: float32(i)}
	}
	return s
}
