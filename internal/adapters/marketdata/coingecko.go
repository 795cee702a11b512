package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/alejandrodnm/forecaster/internal/domain"
)

// CurrentPrice implementa ports.MarketDataProvider. El símbolo se reduce a la
// moneda base (BTCUSD → btc), se resuelve su id en /coins/list y se consulta
// /simple/price en USD.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	base := baseCurrency(symbol)
	id, err := c.coinID(ctx, base)
	if err != nil {
		return 0, fmt.Errorf("marketdata.CurrentPrice: %s: %w", symbol, err)
	}

	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")
	u := fmt.Sprintf("%s/simple/price?%s", c.geckoBase, q.Encode())

	var prices geckoPrices
	if err := c.get(ctx, c.geckoLimiter, u, &prices); err != nil {
		return 0, fmt.Errorf("marketdata.CurrentPrice: %s: %w", symbol, err)
	}
	price, ok := prices[id]["usd"]
	if !ok {
		return 0, fmt.Errorf("marketdata.CurrentPrice: no usd price for %s: %w", id, domain.ErrDataNotFound)
	}
	return price, nil
}

// coinID resuelve el id de CoinGecko. La lista de monedas se descarga una vez
// por Client.
func (c *Client) coinID(ctx context.Context, base string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.coinIDs == nil {
		var coins []geckoCoin
		if err := c.get(ctx, c.geckoLimiter, c.geckoBase+"/coins/list", &coins); err != nil {
			return "", fmt.Errorf("coins list: %w", err)
		}
		ids := make(map[string]string, len(coins))
		for _, coin := range coins {
			sym := strings.ToLower(coin.Symbol)
			if _, dup := ids[sym]; !dup {
				ids[sym] = coin.ID
			}
		}
		c.coinIDs = ids
	}

	id, ok := c.coinIDs[base]
	if !ok {
		return "", fmt.Errorf("unknown coin %q: %w", base, domain.ErrDataNotFound)
	}
	return id, nil
}

// baseCurrency quita el sufijo USD y pasa a minúsculas.
func baseCurrency(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.TrimSuffix(s, "USD")
	return strings.ToLower(s)
}
