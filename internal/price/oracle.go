package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnavailable = errors.New("native price unavailable")

type Oracle interface {
	NativePriceUSD(ctx context.Context) (decimal.Decimal, error)
}

// Client asks a CoinGecko-style simple price endpoint for the current USD
// price on every call. Responses look like {"ethereum":{"usd":3012.55}}.
type Client struct {
	url    string
	coinID string
	hc     *http.Client
}

func NewClient(url string, coinID string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		coinID: coinID,
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) NativePriceUSD(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, body)
	}

	var prices map[string]map[string]*decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}

	usd := prices[c.coinID]["usd"]
	if usd == nil {
		return decimal.Zero, fmt.Errorf("%w: no usd price for %s in response", ErrUnavailable, c.coinID)
	}
	if !usd.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive price %s", ErrUnavailable, usd)
	}
	return *usd, nil
}
