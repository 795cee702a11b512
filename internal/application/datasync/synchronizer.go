package datasync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
)

// DatasetPath devuelve la ruta del dataset del símbolo: <dir>/<SYMBOL>.csv.
func DatasetPath(dir, symbol string) string {
	return filepath.Join(dir, strings.ToUpper(symbol)+".csv")
}

// Synchronizer mantiene los datasets al día: upsert por fecha de filas nuevas
// y política de "últimos datos disponibles".
type Synchronizer struct {
	files    ports.DatasetStore
	provider ports.MarketDataProvider
	now      func() time.Time
}

// New crea un Synchronizer. provider puede ser nil si solo se usa Merge.
func New(files ports.DatasetStore, provider ports.MarketDataProvider) *Synchronizer {
	return &Synchronizer{files: files, provider: provider, now: time.Now}
}

// SetClock reemplaza el reloj usado por la política de staleness.
func (s *Synchronizer) SetClock(now func() time.Time) {
	s.now = now
}

// Merge lee src, hace upsert de rows por fecha (las nuevas ganan) y escribe el
// resultado en dst ordenado de más reciente a más antiguo, preservando la
// cabecera de src. src y dst pueden ser el mismo fichero.
func (s *Synchronizer) Merge(src, dst string, rows []domain.RawMarketRow) error {
	return s.merge(src, dst, domain.RowsToLines(rows))
}

// MergeObservations es Merge para observaciones reducidas: las filas nuevas
// solo llevan fecha y cierre (date,,,,close,,,).
func (s *Synchronizer) MergeObservations(src, dst string, obs domain.Series) error {
	return s.merge(src, dst, domain.ObservationsToLines(obs))
}

func (s *Synchronizer) merge(src, dst string, incoming []domain.DatedLine) error {
	header, existing, err := s.files.ReadLines(src)
	if err != nil {
		return fmt.Errorf("datasync.Merge: %w", err)
	}
	if header == "" {
		header = domain.DatasetHeader
	}

	merged, replaced := domain.MergeRows(existing, incoming)
	if replaced > 0 {
		slog.Debug("dataset rows overwritten",
			"path", dst,
			"replaced", replaced,
		)
	}

	if err := s.files.WriteLines(dst, header, merged); err != nil {
		return fmt.Errorf("datasync.Merge: %w", err)
	}
	slog.Debug("dataset merged",
		"src", src,
		"dst", dst,
		"incoming", len(incoming),
		"rows", len(merged),
	)
	return nil
}

// LatestAvailable pide al provider las filas posteriores a lastDate si los
// datos están obsoletos (lastDate anterior a ayer). Si no lo están devuelve
// un slice vacío sin hacer ninguna petición.
func (s *Synchronizer) LatestAvailable(ctx context.Context, symbol string, lastDate time.Time) ([]domain.RawMarketRow, error) {
	start, stale := domain.FetchStart(lastDate, s.now())
	if !stale {
		return nil, nil
	}
	if s.provider == nil {
		return nil, fmt.Errorf("datasync.LatestAvailable: no data provider: %w", domain.ErrConfiguration)
	}

	rows, err := s.provider.FetchHistorical(ctx, symbol, start)
	if err != nil {
		return nil, fmt.Errorf("datasync.LatestAvailable: %s since %s: %w",
			symbol, start.Format(domain.DateLayout), err)
	}
	return rows, nil
}

// UpdateToLatest trae al dataset las filas que falten hasta ayer y devuelve
// cuántas filas nuevas recibió del provider.
func (s *Synchronizer) UpdateToLatest(ctx context.Context, symbol, path string) (int, error) {
	_, rows, err := s.files.ReadLines(path)
	if err != nil {
		return 0, fmt.Errorf("datasync.UpdateToLatest: %w", err)
	}

	var last time.Time
	for _, r := range rows {
		if r.Date.After(last) {
			last = r.Date
		}
	}

	fresh, err := s.LatestAvailable(ctx, symbol, last)
	if err != nil {
		return 0, fmt.Errorf("datasync.UpdateToLatest: %w", err)
	}
	if len(fresh) == 0 {
		slog.Debug("dataset up to date", "symbol", symbol, "last", last.Format(domain.DateLayout))
		return 0, nil
	}

	if err := s.Merge(path, path, fresh); err != nil {
		return 0, fmt.Errorf("datasync.UpdateToLatest: %w", err)
	}
	slog.Info("dataset updated",
		"symbol", symbol,
		"new_rows", len(fresh),
		"from", fresh[0].Date.Format(domain.DateLayout),
	)
	return len(fresh), nil
}

// EnsureDataset descarga todo el histórico disponible si el dataset no existe.
func (s *Synchronizer) EnsureDataset(ctx context.Context, symbol, path string) error {
	exists, err := s.files.Exists(path)
	if err != nil {
		return fmt.Errorf("datasync.EnsureDataset: %w", err)
	}
	if exists {
		return nil
	}
	if s.provider == nil {
		return fmt.Errorf("datasync.EnsureDataset: %s missing and no data provider: %w", path, domain.ErrDataNotFound)
	}

	rows, err := s.provider.FetchHistorical(ctx, symbol, time.Unix(0, 0).UTC())
	if err != nil {
		return fmt.Errorf("datasync.EnsureDataset: %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("datasync.EnsureDataset: provider returned no rows for %s: %w", symbol, domain.ErrDataNotFound)
	}

	if err := s.files.WriteFresh(path, rows); err != nil {
		return fmt.Errorf("datasync.EnsureDataset: %w", err)
	}
	slog.Info("dataset created", "symbol", symbol, "path", path, "rows", len(rows))
	return nil
}
