package domain

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout es el formato de fecha de todos los CSV del proyecto.
const DateLayout = "2006-01-02"

// DatasetHeader es la cabecera de los datasets de precios: una fila por día.
const DatasetHeader = "Date,High,Low,Mid,Close,Bid,Ask,Volume"

// Observation es un punto (fecha, valor) de una serie de precios diaria.
type Observation struct {
	Date  time.Time
	Value float32
}

// NewObservation normaliza la fecha a medianoche UTC.
func NewObservation(date time.Time, value float32) Observation {
	return Observation{Date: DateOnly(date), Value: value}
}

// RawMarketRow es la fila completa que devuelven los providers de datos históricos.
// Mid, Bid y Ask dependen del provider y pueden faltar.
type RawMarketRow struct {
	Date   time.Time
	High   float64
	Low    float64
	Mid    *float64
	Close  float64
	Bid    *float64
	Ask    *float64
	Volume float64
}

// Observation proyecta el cierre de la fila.
func (r RawMarketRow) Observation() Observation {
	return NewObservation(r.Date, float32(r.Close))
}

// CSV renderiza la fila en el formato del dataset:
// Date,High,Low,Mid,Close,Bid,Ask,Volume (opcionales vacíos).
func (r RawMarketRow) CSV() string {
	fields := []string{
		r.Date.Format(DateLayout),
		formatFloat(r.High),
		formatFloat(r.Low),
		formatOptional(r.Mid),
		formatFloat(r.Close),
		formatOptional(r.Bid),
		formatOptional(r.Ask),
		formatFloat(r.Volume),
	}
	return strings.Join(fields, ",")
}

// ObservationCSV renderiza una observación reducida con la misma forma de fila:
// solo fecha y cierre, el resto de columnas en blanco.
func ObservationCSV(o Observation) string {
	return o.Date.Format(DateLayout) + ",,,," + FormatValue(o.Value) + ",,,"
}

// FormatValue imprime un float32 con la mínima cantidad de dígitos que
// permite recuperarlo exacto.
func FormatValue(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

// DateOnly trunca a medianoche UTC conservando el día calendario.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate acepta yyyy-MM-dd y, como fallback, fechas RFC3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
