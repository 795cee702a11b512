package trainer

// concurrent.go — evaluación paralela de las celdas del grid search.
//
// Cada celda entrega su resultado al reducer en cuanto termina; el reducer
// solo retiene la mejor celda vista hasta ahora, así que los resultados
// perdedores (modelo + split) se liberan sin esperar al resto del grid.
// El orden total (MAE, índice de candidato) hace que el ganador no dependa
// del orden de finalización.

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"golang.org/x/sync/errgroup"
)

// cellReducer acumula el mejor resultado y el número de celdas fallidas.
type cellReducer struct {
	mu     sync.Mutex
	best   *EvaluationResult
	idx    int
	failed int
	onFail func(i int, err error)
}

// offer registra el resultado de la celda i. Seguro para uso concurrente.
func (r *cellReducer) offer(i int, res *EvaluationResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.failed++
		if r.onFail != nil {
			r.onFail(i, err)
		}
		return
	}
	if r.best == nil || better(res, i, r.best, r.idx) {
		r.best, r.idx = res, i
	}
}

// better: MAE estrictamente menor gana; ante empate, el candidato anterior.
// Un MAE NaN pierde contra cualquier MAE finito.
func better(a *EvaluationResult, ai int, b *EvaluationResult, bi int) bool {
	ma, mb := a.Metrics.MeanAbsoluteError, b.Metrics.MeanAbsoluteError
	switch {
	case math.IsNaN(ma) && math.IsNaN(mb):
		return ai < bi
	case math.IsNaN(ma):
		return false
	case math.IsNaN(mb):
		return true
	case ma != mb:
		return ma < mb
	}
	return ai < bi
}

// evaluateCellsConcurrent ejecuta eval para cada candidato con como mucho
// workers goroutines y entrega cada resultado a reducer.offer. Los fallos de
// celda no cancelan el resto; solo la cancelación del contexto aborta el grid.
//
// Si workers <= 0 usa runtime.NumCPU().
func evaluateCellsConcurrent(
	ctx context.Context,
	cells []domain.FitParams,
	workers int,
	reducer *cellReducer,
	eval func(domain.FitParams) (*EvaluationResult, error),
) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range cells {
		if gctx.Err() != nil {
			break
		}
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := eval(p)
			reducer.offer(i, res, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
