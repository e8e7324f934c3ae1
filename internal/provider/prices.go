package provider

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

// priceWire is the wire format shared by both price providers. Missing
// fields decode as nil pointers, which the merge policy treats as absent.
type priceWire struct {
	Price     float64  `json:"price"`
	Change24h *float64 `json:"change24h"`
	Change1h  *float64 `json:"change1h"`
	Change7d  *float64 `json:"change7d"`
	Change30d *float64 `json:"change30d"`
	Change1y  *float64 `json:"change1y"`
	Volume24h float64  `json:"volume24h"`
	MarketCap float64  `json:"marketCap"`
	Liquidity float64  `json:"liquidity"`
	LogoURL   string   `json:"logo"`
}

// pricesResponse is the wire envelope: instrument key -> record.
type pricesResponse struct {
	Data map[string]priceWire `json:"data"`
}

// FetchFast fetches low-latency prices for the given canonical keys.
// Records carry only price, 24h change, and volume; all other fields are
// left empty and must not clobber detailed-source data downstream.
func (c *Client) FetchFast(ctx context.Context, keys []string) (map[string]model.PriceRecord, error) {
	return c.fetchPrices(ctx, c.fast, "/v1/prices", keys, model.SourceFast)
}

// FetchDetailed fetches full reference records for the given canonical
// keys: market cap, liquidity, logo, and multi-horizon changes.
func (c *Client) FetchDetailed(ctx context.Context, keys []string) (map[string]model.PriceRecord, error) {
	return c.fetchPrices(ctx, c.detailed, "/v1/tokens", keys, model.SourceDetailed)
}

func (c *Client) fetchPrices(ctx context.Context, ep Endpoint, path string, keys []string, source model.Source) (map[string]model.PriceRecord, error) {
	if len(keys) == 0 {
		return map[string]model.PriceRecord{}, nil
	}

	query := url.Values{}
	query.Set("keys", strings.Join(keys, ","))

	var resp pricesResponse
	if err := c.fetch(ctx, ep, path, query, &resp); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make(map[string]model.PriceRecord, len(resp.Data))
	for key, w := range resp.Data {
		out[key] = model.PriceRecord{
			Price:     w.Price,
			Change24h: w.Change24h,
			Change1h:  w.Change1h,
			Change7d:  w.Change7d,
			Change30d: w.Change30d,
			Change1y:  w.Change1y,
			Volume24h: w.Volume24h,
			MarketCap: w.MarketCap,
			Liquidity: w.Liquidity,
			LogoURL:   w.LogoURL,
			Source:    source,
			UpdatedAt: now,
		}
	}

	return out, nil
}
