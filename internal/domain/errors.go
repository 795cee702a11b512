package domain

import "errors"

// Errores del core. Las capas superiores los envuelven con contexto
// (operación, símbolo, parámetros) y los callers los distinguen con errors.Is.
var (
	// ErrConfiguration: hiperparámetros o configuración inválidos. Se detecta
	// antes de empezar cualquier trabajo costoso.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrDataNotFound: falta el dataset, el modelo o su metadata.
	ErrDataNotFound = errors.New("data not found")

	// ErrTrainingFailed: ninguna celda del grid search produjo un modelo.
	ErrTrainingFailed = errors.New("training failed")

	// ErrModelLoad: el blob del modelo no se pudo deserializar.
	ErrModelLoad = errors.New("model load failed")

	// ErrNotConverged: un fit individual falló numéricamente.
	ErrNotConverged = errors.New("model did not converge")
)
