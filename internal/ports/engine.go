package ports

import (
	"io"

	"github.com/alejandrodnm/forecaster/internal/domain"
)

// ForecastEngine ajusta modelos de forecasting sobre una serie de valores.
// Cada Fit es independiente: el engine no guarda estado entre llamadas y
// puede usarse desde varias goroutines a la vez.
type ForecastEngine interface {
	// Fit entrena un modelo con los valores de training (orden cronológico).
	// Un fallo numérico se reporta envolviendo domain.ErrNotConverged.
	Fit(training []float32, params domain.FitParams) (FittedModel, error)

	// Load reconstruye un modelo a partir de un checkpoint.
	// Un blob corrupto o incompatible se reporta envolviendo domain.ErrModelLoad.
	Load(r io.Reader) (FittedModel, error)
}

// FittedModel es un modelo entrenado. No es seguro para uso concurrente.
type FittedModel interface {
	// Forecast devuelve el forecast de Horizon pasos desde el final de lo
	// observado, sin modificar el estado.
	Forecast() (domain.Forecast, error)

	// Fold incorpora una observación nueva al estado del modelo y devuelve el
	// forecast actualizado. Las observaciones deben llegar en orden cronológico.
	Fold(value float32) (domain.Forecast, error)

	// Params devuelve los parámetros con los que se ajustó el modelo.
	Params() domain.FitParams

	// Checkpoint serializa el estado completo del modelo.
	Checkpoint(w io.Writer) error
}
