package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultQuandlBase    = "https://data.nasdaq.com/api/v3"
	defaultCoinGeckoBase = "https://api.coingecko.com/api/v3"
	defaultDatabase      = "BITFINEX"

	// Nasdaq Data Link: 300 req/10s con API key → usamos ~60%.
	quandlRatePerSec = 18
	// CoinGecko free tier: ~30 req/min.
	geckoRatePerMin = 20

	defaultMaxRetries    = 3
	defaultBaseRetryWait = 500 * time.Millisecond
	defaultTimeout       = 15 * time.Second
)

// Config configura el cliente de datos de mercado.
type Config struct {
	QuandlBase    string
	CoinGeckoBase string
	APIKey        string
	Database      string
	Timeout       time.Duration
	MaxRetries    int
	RetryWait     time.Duration
}

// Client obtiene precios históricos (Nasdaq Data Link / Quandl) y spot
// (CoinGecko) con rate limiting y retries.
type Client struct {
	http          *http.Client
	quandlBase    string
	geckoBase     string
	apiKey        string
	database      string
	maxRetries    int
	retryWait     time.Duration
	quandlLimiter *rate.Limiter
	geckoLimiter  *rate.Limiter

	mu      sync.Mutex
	coinIDs map[string]string // símbolo (btc) → id de CoinGecko (bitcoin)
}

// NewClient crea un Client. Los campos vacíos de cfg usan los valores de producción.
func NewClient(cfg Config) *Client {
	if cfg.QuandlBase == "" {
		cfg.QuandlBase = defaultQuandlBase
	}
	if cfg.CoinGeckoBase == "" {
		cfg.CoinGeckoBase = defaultCoinGeckoBase
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultBaseRetryWait
	}
	return &Client{
		http:          &http.Client{Timeout: cfg.Timeout},
		quandlBase:    cfg.QuandlBase,
		geckoBase:     cfg.CoinGeckoBase,
		apiKey:        cfg.APIKey,
		database:      cfg.Database,
		maxRetries:    cfg.MaxRetries,
		retryWait:     cfg.RetryWait,
		quandlLimiter: rate.NewLimiter(quandlRatePerSec, 5),
		geckoLimiter:  rate.NewLimiter(rate.Every(time.Minute/geckoRatePerMin), 3),
	}
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial, respetando el contexto.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt == c.maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", c.maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == c.maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, c.maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", c.maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
