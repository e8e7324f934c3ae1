package provider

import (
	"context"
	"time"

	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

// Derivatives bundles the per-cycle derivatives feed.
type Derivatives struct {
	Funding      []model.FundingRate
	OpenInterest []model.OpenInterestStat
	LongShort    []model.LongShortStat
}

type derivativesResponse struct {
	Funding []struct {
		Symbol string  `json:"symbol"`
		Rate   float64 `json:"fundingRate"`
	} `json:"funding"`
	OpenInterest []struct {
		Symbol      string  `json:"symbol"`
		NotionalUSD float64 `json:"openInterestUsd"`
		Change24h   float64 `json:"change24h"`
	} `json:"openInterest"`
	LongShort []struct {
		Symbol   string  `json:"symbol"`
		LongPct  float64 `json:"longPct"`
		ShortPct float64 `json:"shortPct"`
	} `json:"longShort"`
}

// FetchDerivatives fetches funding rates, open interest, and long/short
// ratios in one round trip.
func (c *Client) FetchDerivatives(ctx context.Context) (Derivatives, error) {
	var resp derivativesResponse
	if err := c.fetch(ctx, c.feed, "/v1/derivatives", nil, &resp); err != nil {
		return Derivatives{}, err
	}

	now := time.Now().UTC()
	out := Derivatives{
		Funding:      make([]model.FundingRate, 0, len(resp.Funding)),
		OpenInterest: make([]model.OpenInterestStat, 0, len(resp.OpenInterest)),
		LongShort:    make([]model.LongShortStat, 0, len(resp.LongShort)),
	}

	for _, f := range resp.Funding {
		out.Funding = append(out.Funding, model.FundingRate{
			Symbol: f.Symbol,
			Rate:   f.Rate,
		})
	}
	for _, oi := range resp.OpenInterest {
		out.OpenInterest = append(out.OpenInterest, model.OpenInterestStat{
			Symbol:      oi.Symbol,
			NotionalUSD: oi.NotionalUSD,
			Change24h:   oi.Change24h,
		})
	}
	for _, ls := range resp.LongShort {
		out.LongShort = append(out.LongShort, model.LongShortStat{
			Symbol:    ls.Symbol,
			LongPct:   ls.LongPct,
			ShortPct:  ls.ShortPct,
			Timestamp: now,
		})
	}

	return out, nil
}

type globalResponse struct {
	Data struct {
		TotalMarketCapUSD   float64 `json:"totalMarketCapUsd"`
		TotalVolume24hUSD   float64 `json:"totalVolume24hUsd"`
		BTCDominance        float64 `json:"btcDominance"`
		ETHDominance        float64 `json:"ethDominance"`
		StablecoinDominance float64 `json:"stablecoinDominance"`
	} `json:"data"`
}

// FetchGlobal fetches the market-wide summary.
func (c *Client) FetchGlobal(ctx context.Context) (model.GlobalMarket, error) {
	var resp globalResponse
	if err := c.fetch(ctx, c.feed, "/v1/global", nil, &resp); err != nil {
		return model.GlobalMarket{}, err
	}

	return model.GlobalMarket{
		TotalMarketCapUSD:   resp.Data.TotalMarketCapUSD,
		TotalVolume24hUSD:   resp.Data.TotalVolume24hUSD,
		BTCDominance:        resp.Data.BTCDominance,
		ETHDominance:        resp.Data.ETHDominance,
		StablecoinDominance: resp.Data.StablecoinDominance,
	}, nil
}

type tickersResponse struct {
	Data []struct {
		Symbol    string  `json:"symbol"`
		Price     float64 `json:"price"`
		Change24h float64 `json:"change24h"`
		Volume24h float64 `json:"volume24h"`
	} `json:"data"`
}

// FetchTickers fetches the 24h ticker board used for gainers/losers and
// sector math.
func (c *Client) FetchTickers(ctx context.Context) ([]model.TickerStat, error) {
	var resp tickersResponse
	if err := c.fetch(ctx, c.feed, "/v1/tickers/24h", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]model.TickerStat, 0, len(resp.Data))
	for _, tk := range resp.Data {
		out = append(out, model.TickerStat{
			Symbol:    tk.Symbol,
			Price:     tk.Price,
			Change24h: tk.Change24h,
			Volume24h: tk.Volume24h,
		})
	}

	return out, nil
}
