package ports

import (
	"time"

	"github.com/alejandrodnm/forecaster/internal/domain"
)

// DatasetStore lee y escribe los ficheros CSV del dataset y de resultados.
// Las escrituras son atómicas: o el fichero destino queda completo o intacto.
type DatasetStore interface {
	Exists(path string) (bool, error)

	// ReadLines devuelve la cabecera y las filas crudas indexadas por fecha.
	ReadLines(path string) (header string, rows []domain.DatedLine, err error)

	// ReadSeries devuelve la serie de cierres ascendente con fecha >= from.
	ReadSeries(path string, from time.Time) (domain.Series, error)

	WriteLines(path, header string, rows []domain.DatedLine) error
	WriteFresh(path string, rows []domain.RawMarketRow) error
	WriteSeries(path string, series domain.Series) error
	WriteForecasts(path string, points []domain.ForecastPoint) error
	Copy(src, dst string) error
}
