package ssa

// engine.go — Singular Spectrum Analysis sobre gonum.
//
// Fit:
//   1. Matriz de trayectoria X (L×K, K = N−L+1), X[i][j] = x[i+j].
//   2. SVD thin de X. El rango r es el mínimo que acumula energyThreshold de
//      la energía (Σ s²), con tope L−1.
//   3. Fórmula de recurrencia lineal (LRF):
//        π  = última fila de U[:, :r]
//        ν² = Σ π²                      (verticalidad, debe ser < 1)
//        R  = 1/(1−ν²) · Σ π_i · U_i[0..L−2]
//      x[t] = Σ_k R[k] · x[t−L+1+k]
//   4. σ de los errores one-step in-sample; bandas ±z·σ·√k.

import (
	"fmt"
	"math"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultEnergyThreshold = 0.95
	verticalityLimit       = 1 - 1e-9
)

// Engine ajusta modelos SSA. No tiene estado mutable: un mismo Engine sirve
// Fits concurrentes del grid search.
type Engine struct {
	energyThreshold float64
}

// Option configura el Engine.
type Option func(*Engine)

// WithEnergyThreshold fija la fracción de energía espectral que conserva el
// modelo (0 < t ≤ 1).
func WithEnergyThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 && t <= 1 {
			e.energyThreshold = t
		}
	}
}

// NewEngine crea un Engine con las opciones dadas.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{energyThreshold: defaultEnergyThreshold}
	for _, o := range opts {
		o(e)
	}
	return e
}

var _ ports.ForecastEngine = (*Engine)(nil)

// Fit implementa ports.ForecastEngine.
func (e *Engine) Fit(training []float32, p domain.FitParams) (ports.FittedModel, error) {
	if err := validateParams(p); err != nil {
		return nil, fmt.Errorf("ssa.Fit: %w", err)
	}

	n := len(training)
	l := p.WindowSize
	if 2*l > n {
		return nil, fmt.Errorf("ssa.Fit: window %d needs at least %d points, got %d: %w",
			l, 2*l, n, domain.ErrNotConverged)
	}

	x := make([]float64, n)
	for i, v := range training {
		x[i] = float64(v)
	}

	r, err := e.recurrence(x, l)
	if err != nil {
		return nil, fmt.Errorf("ssa.Fit: %s: %w", p, err)
	}

	m := &Model{
		params:     p,
		recurrence: r,
	}

	// Residuos one-step in-sample: la primera predicción posible es x[L−1].
	for t := l - 1; t < n; t++ {
		pred := floats.Dot(r, x[t-l+1:t])
		m.addResidual(x[t] - pred)
	}
	m.buffer = tail(x, bufferLen(p))

	if _, err := m.Forecast(); err != nil {
		return nil, fmt.Errorf("ssa.Fit: %s: %w", p, err)
	}
	return m, nil
}

// recurrence descompone la serie y devuelve los L−1 coeficientes de la LRF.
func (e *Engine) recurrence(x []float64, l int) ([]float64, error) {
	k := len(x) - l + 1
	traj := mat.NewDense(l, k, nil)
	for i := 0; i < l; i++ {
		for j := 0; j < k; j++ {
			traj.Set(i, j, x[i+j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(traj, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd factorization failed: %w", domain.ErrNotConverged)
	}
	sv := svd.Values(nil)
	var u mat.Dense
	svd.UTo(&u)

	rank := selectRank(sv, e.energyThreshold, l-1)
	if rank == 0 {
		return nil, fmt.Errorf("degenerate series (zero energy): %w", domain.ErrNotConverged)
	}

	var nu2 float64
	for i := 0; i < rank; i++ {
		pi := u.At(l-1, i)
		nu2 += pi * pi
	}
	if nu2 >= verticalityLimit {
		return nil, fmt.Errorf("verticality %.6f >= 1: %w", nu2, domain.ErrNotConverged)
	}

	r := make([]float64, l-1)
	for i := 0; i < rank; i++ {
		pi := u.At(l-1, i)
		for j := 0; j < l-1; j++ {
			r[j] += pi * u.At(j, i)
		}
	}
	floats.Scale(1/(1-nu2), r)

	if !allFinite(r) {
		return nil, fmt.Errorf("non-finite recurrence: %w", domain.ErrNotConverged)
	}
	return r, nil
}

// selectRank devuelve el mínimo r tal que Σ_{i<r} s_i² ≥ threshold · Σ s².
func selectRank(sv []float64, threshold float64, maxRank int) int {
	var total float64
	for _, s := range sv {
		total += s * s
	}
	if total == 0 || math.IsNaN(total) {
		return 0
	}
	limit := min(maxRank, len(sv))
	var acc float64
	for i := 0; i < limit; i++ {
		acc += sv[i] * sv[i]
		if acc/total >= threshold {
			return i + 1
		}
	}
	return limit
}

func validateParams(p domain.FitParams) error {
	switch {
	case p.WindowSize < 2:
		return fmt.Errorf("window size %d < 2: %w", p.WindowSize, domain.ErrConfiguration)
	case p.WindowSize >= p.SeriesLength:
		return fmt.Errorf("window size %d >= series length %d: %w",
			p.WindowSize, p.SeriesLength, domain.ErrNotConverged)
	case p.Horizon < 1:
		return fmt.Errorf("horizon %d < 1: %w", p.Horizon, domain.ErrConfiguration)
	case p.ConfidenceLevel <= 0 || p.ConfidenceLevel >= 1:
		return fmt.Errorf("confidence level %.3f outside (0,1): %w", p.ConfidenceLevel, domain.ErrConfiguration)
	}
	return nil
}

// bufferLen es el número de valores recientes que conserva el modelo.
func bufferLen(p domain.FitParams) int {
	return max(p.SeriesLength, p.WindowSize-1)
}

func tail(x []float64, n int) []float64 {
	if len(x) > n {
		x = x[len(x)-n:]
	}
	out := make([]float64, len(x))
	copy(out, x)
	return out
}

func allFinite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
