package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/forecaster/internal/domain"
)

// MarketDataProvider obtiene precios históricos y actuales de un símbolo.
type MarketDataProvider interface {
	// FetchHistorical devuelve las filas diarias con fecha >= start, en orden
	// cronológico ascendente. Sin datos nuevos devuelve un slice vacío.
	FetchHistorical(ctx context.Context, symbol string, start time.Time) ([]domain.RawMarketRow, error)

	// CurrentPrice devuelve el precio spot del símbolo.
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}
