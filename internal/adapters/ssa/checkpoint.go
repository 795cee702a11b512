package ssa

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
)

const snapshotVersion = 1

// snapshot es la forma serializada de Model.
type snapshot struct {
	Version    int
	Params     domain.FitParams
	Recurrence []float64
	Buffer     []float64
	SumSq      float64
	Count      int
}

// Checkpoint implementa ports.FittedModel.
func (m *Model) Checkpoint(w io.Writer) error {
	s := snapshot{
		Version:    snapshotVersion,
		Params:     m.params,
		Recurrence: m.recurrence,
		Buffer:     m.buffer,
		SumSq:      m.sumSq,
		Count:      m.count,
	}
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("ssa.Checkpoint: encode: %w", err)
	}
	return nil
}

// Load implementa ports.ForecastEngine.
func (e *Engine) Load(r io.Reader) (ports.FittedModel, error) {
	var s snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("ssa.Load: decode: %v: %w", err, domain.ErrModelLoad)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("ssa.Load: %v: %w", err, domain.ErrModelLoad)
	}
	return &Model{
		params:     s.Params,
		recurrence: s.Recurrence,
		buffer:     s.Buffer,
		sumSq:      s.SumSq,
		count:      s.Count,
	}, nil
}

func (s snapshot) validate() error {
	if s.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	if err := validateParams(s.Params); err != nil {
		return err
	}
	if len(s.Recurrence) != s.Params.WindowSize-1 {
		return fmt.Errorf("recurrence has %d coefficients, window %d", len(s.Recurrence), s.Params.WindowSize)
	}
	if len(s.Buffer) < len(s.Recurrence) || len(s.Buffer) > bufferLen(s.Params) {
		return fmt.Errorf("buffer has %d values", len(s.Buffer))
	}
	if s.Count < 0 || s.SumSq < 0 {
		return fmt.Errorf("invalid residual statistics")
	}
	if !allFinite(s.Recurrence) || !allFinite(s.Buffer) || !allFinite([]float64{s.SumSq}) {
		return fmt.Errorf("non-finite values")
	}
	return nil
}
