package dataset

// store.go — ficheros CSV planos del proyecto.
//
//   <symbol>.csv                Date,High,Low,Mid,Close,Bid,Ask,Volume (descendente)
//   <symbol>_*_split.csv        Date,Last (ascendente)
//   <symbol>_*_forecast.csv     Date,Forecast,LowerBound,UpperBound,BoundsDifference
//
// Toda escritura va a un temporal en el mismo directorio que se vuelca, se
// cierra y se renombra sobre el destino. Si algo falla el temporal se borra y
// el destino queda intacto.

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
	"github.com/spf13/afero"
)

const (
	DatasetHeader  = domain.DatasetHeader
	SeriesHeader   = "Date,Last"
	ForecastHeader = "Date,Forecast,LowerBound,UpperBound,BoundsDifference"

	closeColumn = 4
)

// Store lee y escribe los ficheros del dataset sobre un afero.Fs.
type Store struct {
	fs afero.Fs
}

var _ ports.DatasetStore = (*Store)(nil)

// NewStore crea un Store. En producción fs es afero.NewOsFs().
func NewStore(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// Exists indica si el fichero existe.
func (s *Store) Exists(path string) (bool, error) {
	ok, err := afero.Exists(s.fs, path)
	if err != nil {
		return false, fmt.Errorf("dataset.Exists: %s: %w", path, err)
	}
	return ok, nil
}

// ReadLines devuelve la cabecera y las filas del fichero, cada una indexada por
// su fecha. Las líneas vacías se ignoran. Un fichero inexistente devuelve
// domain.ErrDataNotFound.
func (s *Store) ReadLines(path string) (header string, rows []domain.DatedLine, err error) {
	f, err := s.open(path)
	if err != nil {
		return "", nil, fmt.Errorf("dataset.ReadLines: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if lineNo == 1 {
			header = line
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		dl, err := domain.ParseDatedLine(line)
		if err != nil {
			return "", nil, fmt.Errorf("dataset.ReadLines: %s line %d: %w", path, lineNo, err)
		}
		rows = append(rows, dl)
	}
	if err := sc.Err(); err != nil {
		return "", nil, fmt.Errorf("dataset.ReadLines: %s: %w", path, err)
	}
	return header, rows, nil
}

// ReadSeries lee la columna de cierre del dataset y devuelve la serie en orden
// ascendente, filtrada a fechas >= from. Las comillas y separadores de miles
// del valor se eliminan antes de parsear.
func (s *Store) ReadSeries(path string, from time.Time) (domain.Series, error) {
	f, err := s.open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset.ReadSeries: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var series domain.Series
	for lineNo := 1; ; lineNo++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset.ReadSeries: %s: %w", path, err)
		}
		if lineNo == 1 || isBlank(rec) {
			continue
		}
		obs, err := parseClose(rec)
		if err != nil {
			return nil, fmt.Errorf("dataset.ReadSeries: %s line %d: %w", path, lineNo, err)
		}
		series = append(series, obs)
	}

	return series.Normalize().Since(from), nil
}

// WriteLines escribe la cabecera y las filas tal cual, en el orden recibido.
func (s *Store) WriteLines(path, header string, rows []domain.DatedLine) error {
	err := s.writeAtomic(path, func(w *bufio.Writer) error {
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		for _, r := range rows {
			if _, err := fmt.Fprintln(w, r.Line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("dataset.WriteLines: %s: %w", path, err)
	}
	return nil
}

// WriteFresh crea un dataset nuevo con la cabecera estándar y las filas
// ordenadas de más reciente a más antigua.
func (s *Store) WriteFresh(path string, rows []domain.RawMarketRow) error {
	lines := domain.RowsToLines(rows)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Date.After(lines[j].Date) })
	return s.WriteLines(path, DatasetHeader, lines)
}

// WriteSeries escribe una serie como Date,Last en orden ascendente.
func (s *Store) WriteSeries(path string, series domain.Series) error {
	err := s.writeAtomic(path, func(w *bufio.Writer) error {
		if _, err := fmt.Fprintln(w, SeriesHeader); err != nil {
			return err
		}
		for _, o := range series {
			if _, err := fmt.Fprintf(w, "%s,%s\n", o.Date.Format(domain.DateLayout), domain.FormatValue(o.Value)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("dataset.WriteSeries: %s: %w", path, err)
	}
	return nil
}

// WriteForecasts escribe los puntos de forecast en orden ascendente de fecha.
func (s *Store) WriteForecasts(path string, points []domain.ForecastPoint) error {
	sorted := make([]domain.ForecastPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	err := s.writeAtomic(path, func(w *bufio.Writer) error {
		if _, err := fmt.Fprintln(w, ForecastHeader); err != nil {
			return err
		}
		for _, p := range sorted {
			if _, err := fmt.Fprintf(w, "%s,%s,%s,%s,%s\n",
				p.Date.Format(domain.DateLayout),
				domain.FormatValue(p.Forecast),
				domain.FormatValue(p.LowerBound),
				domain.FormatValue(p.UpperBound),
				strconv.FormatFloat(p.BoundsDifference, 'f', -1, 64),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("dataset.WriteForecasts: %s: %w", path, err)
	}
	return nil
}

// Copy copia src sobre dst.
func (s *Store) Copy(src, dst string) error {
	in, err := s.open(src)
	if err != nil {
		return fmt.Errorf("dataset.Copy: %w", err)
	}
	defer in.Close()

	err = s.writeAtomic(dst, func(w *bufio.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
	if err != nil {
		return fmt.Errorf("dataset.Copy: %s -> %s: %w", src, dst, err)
	}
	return nil
}

// --- helpers internos ---

func (s *Store) open(path string) (afero.File, error) {
	f, err := s.fs.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrDataNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// writeAtomic escribe vía temporal + rename. El temporal se borra en cualquier
// camino de error.
func (s *Store) writeAtomic(path string, fill func(w *bufio.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			tmp.Close()
		}
		s.fs.Remove(tmp.Name())
	}()

	w := bufio.NewWriter(tmp)
	if err = fill(w); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = s.fs.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func parseClose(rec []string) (domain.Observation, error) {
	if len(rec) <= closeColumn {
		return domain.Observation{}, fmt.Errorf("expected at least %d columns, got %d", closeColumn+1, len(rec))
	}
	date, err := domain.ParseDate(rec[0])
	if err != nil {
		return domain.Observation{}, fmt.Errorf("date %q: %w", rec[0], err)
	}
	raw := strings.NewReplacer(",", "", `"`, "").Replace(strings.TrimSpace(rec[closeColumn]))
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("close %q: %w", rec[closeColumn], err)
	}
	return domain.NewObservation(date, float32(v)), nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
