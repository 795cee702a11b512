package ports

import (
	"io"

	"github.com/alejandrodnm/forecaster/internal/domain"
)

// ModelRef identifica un modelo persistido.
type ModelRef struct {
	Dir       string
	BlobPath  string
	MetaPath  string
	Symbol    string
	Timestamp string
}

// ModelRepository persiste modelos entrenados junto a su metadata.
type ModelRepository interface {
	// Save escribe el blob (vía checkpoint) y la metadata en un directorio nuevo.
	Save(symbol string, checkpoint func(io.Writer) error, meta domain.ModelMetadata) (ModelRef, error)

	// Latest devuelve el modelo más reciente del símbolo y su metadata.
	// Sin modelos devuelve un error que envuelve domain.ErrDataNotFound.
	Latest(symbol string) (ModelRef, domain.ModelMetadata, error)

	// Open abre el blob de un modelo para lectura.
	Open(ref ModelRef) (io.ReadCloser, error)
}
