package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
)

var _ ports.MarketDataProvider = (*Client)(nil)

// FetchHistorical implementa ports.MarketDataProvider: filas diarias del
// dataset <database>/<symbol> con fecha >= start, en orden ascendente.
func (c *Client) FetchHistorical(ctx context.Context, symbol string, start time.Time) ([]domain.RawMarketRow, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	q := url.Values{}
	q.Set("start_date", domain.DateOnly(start).Format(domain.DateLayout))
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	u := fmt.Sprintf("%s/datasets/%s/%s/data.json?%s",
		c.quandlBase, url.PathEscape(c.database), url.PathEscape(symbol), q.Encode())

	var resp quandlResponse
	if err := c.get(ctx, c.quandlLimiter, u, &resp); err != nil {
		return nil, fmt.Errorf("marketdata.FetchHistorical: %s: %w", symbol, err)
	}

	rows, err := mapQuandlRows(resp)
	if err != nil {
		return nil, fmt.Errorf("marketdata.FetchHistorical: %s: %w", symbol, err)
	}

	start = domain.DateOnly(start)
	out := make([]domain.RawMarketRow, 0, len(rows))
	for _, r := range rows {
		if !r.Date.Before(start) {
			out = append(out, r)
		}
	}

	slog.Debug("historical rows fetched",
		"symbol", symbol,
		"start", start.Format(domain.DateLayout),
		"rows", len(out),
	)
	return out, nil
}

// mapQuandlRows convierte las filas por nombre de columna, invierte el orden
// (newest-first → ascendente) y elimina fechas duplicadas.
func mapQuandlRows(resp quandlResponse) ([]domain.RawMarketRow, error) {
	cols := make(map[string]int, len(resp.DatasetData.ColumnNames))
	for i, name := range resp.DatasetData.ColumnNames {
		cols[strings.ToLower(name)] = i
	}
	dateIdx, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("missing Date column in %v", resp.DatasetData.ColumnNames)
	}
	closeIdx, ok := cols["last"]
	if !ok {
		if closeIdx, ok = cols["close"]; !ok {
			return nil, fmt.Errorf("missing Last/Close column in %v", resp.DatasetData.ColumnNames)
		}
	}

	seen := make(map[time.Time]bool, len(resp.DatasetData.Data))
	rows := make([]domain.RawMarketRow, 0, len(resp.DatasetData.Data))
	for i := len(resp.DatasetData.Data) - 1; i >= 0; i-- {
		rec := resp.DatasetData.Data[i]

		ds, _ := field(rec, dateIdx).(string)
		date, err := domain.ParseDate(ds)
		if err != nil {
			return nil, fmt.Errorf("row %d: date %q: %w", i, ds, err)
		}
		date = domain.DateOnly(date)

		closePrice, ok := number(field(rec, closeIdx))
		if !ok {
			slog.Debug("row without close price, skipping", "date", ds)
			continue
		}
		if seen[date] {
			continue
		}
		seen[date] = true

		rows = append(rows, domain.RawMarketRow{
			Date:   date,
			High:   valueOr(rec, cols, "high"),
			Low:    valueOr(rec, cols, "low"),
			Mid:    optional(rec, cols, "mid"),
			Close:  closePrice,
			Bid:    optional(rec, cols, "bid"),
			Ask:    optional(rec, cols, "ask"),
			Volume: valueOr(rec, cols, "volume"),
		})
	}
	return rows, nil
}

func field(rec []any, idx int) any {
	if idx < 0 || idx >= len(rec) {
		return nil
	}
	return rec[idx]
}

func number(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func valueOr(rec []any, cols map[string]int, name string) float64 {
	idx, ok := cols[name]
	if !ok {
		return 0
	}
	f, _ := number(field(rec, idx))
	return f
}

func optional(rec []any, cols map[string]int, name string) *float64 {
	idx, ok := cols[name]
	if !ok {
		return nil
	}
	f, ok := number(field(rec, idx))
	if !ok {
		return nil
	}
	return &f
}
