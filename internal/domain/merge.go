package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DatedLine es una fila cruda del dataset indexada por su fecha.
type DatedLine struct {
	Date time.Time
	Line string
}

// ParseDatedLine extrae la fecha del primer campo CSV de la línea.
func ParseDatedLine(line string) (DatedLine, error) {
	first, _, _ := strings.Cut(line, ",")
	date, err := ParseDate(first)
	if err != nil {
		return DatedLine{}, fmt.Errorf("domain.ParseDatedLine: %q: %w", first, err)
	}
	return DatedLine{Date: DateOnly(date), Line: line}, nil
}

// MergeRows combina dos colecciones de filas por fecha (upsert):
//   - se indexan ambas por fecha
//   - si una fecha existe en las dos, gana la entrante (overwrite, nunca duplicado)
//   - el resultado es la unión de fechas ordenada DESCENDENTE
//
// replaced cuenta cuántas filas existentes cambiaron de contenido.
func MergeRows(existing, incoming []DatedLine) (merged []DatedLine, replaced int) {
	byDate := make(map[time.Time]string, len(existing)+len(incoming))
	for _, r := range existing {
		byDate[DateOnly(r.Date)] = r.Line
	}
	for _, r := range incoming {
		d := DateOnly(r.Date)
		if prev, ok := byDate[d]; ok && prev != r.Line {
			replaced++
		}
		byDate[d] = r.Line
	}

	merged = make([]DatedLine, 0, len(byDate))
	for d, line := range byDate {
		merged = append(merged, DatedLine{Date: d, Line: line})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.After(merged[j].Date) })
	return merged, replaced
}

// RowsToLines convierte filas del provider en líneas del dataset.
func RowsToLines(rows []RawMarketRow) []DatedLine {
	out := make([]DatedLine, len(rows))
	for i, r := range rows {
		out[i] = DatedLine{Date: DateOnly(r.Date), Line: r.CSV()}
	}
	return out
}

// ObservationsToLines convierte observaciones reducidas en líneas del dataset
// (solo Date y Close rellenos).
func ObservationsToLines(obs []Observation) []DatedLine {
	out := make([]DatedLine, len(obs))
	for i, o := range obs {
		out[i] = DatedLine{Date: DateOnly(o.Date), Line: ObservationCSV(o)}
	}
	return out
}

// FetchStart aplica la política de "últimos datos disponibles": los datos están
// obsoletos si la última fecha conocida es anterior a AYER (solo fecha). En ese
// caso hay que pedir desde lastDate + 1 día. Los datos del día en curso llegan
// por el camino de precio actual, no por el histórico.
func FetchStart(lastDate, now time.Time) (start time.Time, stale bool) {
	last := DateOnly(lastDate)
	yesterday := DateOnly(now).AddDate(0, 0, -1)
	if last.Before(yesterday) {
		return last.AddDate(0, 0, 1), true
	}
	return time.Time{}, false
}
