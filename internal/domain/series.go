package domain

import (
	"sort"
	"time"
)

// Series es una secuencia de observaciones ordenada por fecha ascendente.
// Las fechas son únicas; Normalize restablece el invariante.
type Series []Observation

// Values devuelve solo los valores, en el mismo orden.
func (s Series) Values() []float32 {
	out := make([]float32, len(s))
	for i, o := range s {
		out[i] = o.Value
	}
	return out
}

// Last devuelve la última observación. ok=false si la serie está vacía.
func (s Series) Last() (Observation, bool) {
	if len(s) == 0 {
		return Observation{}, false
	}
	return s[len(s)-1], true
}

// Split hace el holdout simple: todo menos los últimos h puntos para training,
// los últimos h para test. Ambas partes son copias independientes.
func (s Series) Split(h int) (training, test Series) {
	if h <= 0 {
		return s.Clone(), Series{}
	}
	if h >= len(s) {
		return Series{}, s.Clone()
	}
	cut := len(s) - h
	return s[:cut].Clone(), s[cut:].Clone()
}

// Clone copia la serie.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Since filtra las observaciones con fecha >= from.
func (s Series) Since(from time.Time) Series {
	from = DateOnly(from)
	out := make(Series, 0, len(s))
	for _, o := range s {
		if !o.Date.Before(from) {
			out = append(out, o)
		}
	}
	return out
}

// After filtra las observaciones con fecha estrictamente posterior a date.
func (s Series) After(date time.Time) Series {
	date = DateOnly(date)
	out := make(Series, 0, len(s))
	for _, o := range s {
		if o.Date.After(date) {
			out = append(out, o)
		}
	}
	return out
}

// Normalize ordena por fecha ascendente y deja una sola observación por día.
// Si una fecha aparece varias veces gana la última en el orden de entrada.
func (s Series) Normalize() Series {
	byDate := make(map[time.Time]Observation, len(s))
	for _, o := range s {
		o.Date = DateOnly(o.Date)
		byDate[o.Date] = o
	}
	out := make(Series, 0, len(byDate))
	for _, o := range byDate {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// PercentChanges convierte la serie en cambios porcentuales a n periodos.
// La observación i usa la fecha de s[i] y compara contra s[i-n].
func (s Series) PercentChanges(n int) Series {
	if n <= 0 || len(s) <= n {
		return Series{}
	}
	out := make(Series, 0, len(s)-n)
	for i := n; i < len(s); i++ {
		out = append(out, Observation{
			Date:  s[i].Date,
			Value: PercentChange(s[i-n].Value, s[i].Value),
		})
	}
	return out
}

// PercentChange devuelve el cambio porcentual entre dos precios.
// previous=0 → 0; current=0 → -100.
func PercentChange(previous, current float32) float32 {
	if previous == 0 {
		return 0
	}
	if current == 0 {
		return -100
	}
	return (current - previous) / previous * 100
}

// ObservationsFromRows proyecta el cierre de cada fila.
func ObservationsFromRows(rows []RawMarketRow) Series {
	out := make(Series, len(rows))
	for i, r := range rows {
		out[i] = r.Observation()
	}
	return out
}
