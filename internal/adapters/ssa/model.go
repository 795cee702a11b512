package ssa

import (
	"fmt"
	"math"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Model es un modelo SSA ajustado. Fold muta el estado: no es seguro para
// uso concurrente.
type Model struct {
	params     domain.FitParams
	recurrence []float64 // L−1 coeficientes
	buffer     []float64 // últimos valores observados, como mucho bufferLen
	sumSq      float64   // Σ residuo² one-step
	count      int
}

// Params implementa ports.FittedModel.
func (m *Model) Params() domain.FitParams { return m.params }

// Forecast implementa ports.FittedModel.
func (m *Model) Forecast() (domain.Forecast, error) {
	h := m.params.Horizon
	lag := len(m.recurrence)

	window := make([]float64, lag, lag+h)
	copy(window, m.buffer[len(m.buffer)-lag:])

	z := distuv.UnitNormal.Quantile((1 + m.params.ConfidenceLevel) / 2)
	sigma := m.sigma()

	f := domain.Forecast{
		Values: make([]float32, h),
		Lower:  make([]float32, h),
		Upper:  make([]float32, h),
	}
	for k := 0; k < h; k++ {
		next := floats.Dot(m.recurrence, window[k:k+lag])
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return domain.Forecast{}, fmt.Errorf("ssa.Forecast: step %d non-finite: %w", k+1, domain.ErrNotConverged)
		}
		window = append(window, next)

		width := z * sigma * math.Sqrt(float64(k+1))
		f.Values[k] = float32(next)
		f.Lower[k] = float32(next - width)
		f.Upper[k] = float32(next + width)
	}
	return f, nil
}

// Fold implementa ports.FittedModel: actualiza la estadística de residuos con
// el error one-step de la observación y la añade al buffer.
func (m *Model) Fold(value float32) (domain.Forecast, error) {
	v := float64(value)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.Forecast{}, fmt.Errorf("ssa.Fold: non-finite observation: %w", domain.ErrNotConverged)
	}
	lag := len(m.recurrence)
	pred := floats.Dot(m.recurrence, m.buffer[len(m.buffer)-lag:])
	m.addResidual(v - pred)

	m.buffer = append(m.buffer, v)
	if n := bufferLen(m.params); len(m.buffer) > n {
		m.buffer = tail(m.buffer, n)
	}
	return m.Forecast()
}

func (m *Model) addResidual(e float64) {
	m.sumSq += e * e
	m.count++
}

func (m *Model) sigma() float64 {
	if m.count == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.count))
}
