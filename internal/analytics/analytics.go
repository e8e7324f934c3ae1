package analytics

import (
	"fmt"
	"time"

	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

// Heuristic constants. None of these carry empirical calibration; they
// scale raw skew into human-sized figures.
const (
	// whaleFlowScale converts notional long/short imbalance into the
	// reported net flow estimate.
	whaleFlowScale = 0.15

	// Anomaly thresholds.
	fundingExtremeAbs = 0.05 // Per-interval funding rate
	oiSurgeAbsPct     = 10.0 // 24h open-interest change, percent
	skewHighPct       = 70.0 // Long accounts, percent
	skewLowPct        = 30.0
)

// btcSymbol is the reference asset for dominance and scenario inputs.
const btcSymbol = "BTC"

// Feed is one raw-feed batch: everything the engine needs for a cycle.
type Feed struct {
	Funding      []model.FundingRate
	OpenInterest []model.OpenInterestStat
	LongShort    []model.LongShortStat
	Global       model.GlobalMarket
	Tickers      []model.TickerStat
	BTCPrice     float64
}

// btcChange24h returns BTC's 24h change from the ticker board.
func (f Feed) btcChange24h() float64 {
	for _, tk := range f.Tickers {
		if tk.Symbol == btcSymbol {
			return tk.Change24h
		}
	}
	return 0
}

// btcFunding returns BTC's funding rate, 0 when absent.
func (f Feed) btcFunding() float64 {
	for _, fr := range f.Funding {
		if fr.Symbol == btcSymbol {
			return fr.Rate
		}
	}
	return 0
}

// btcLongPct returns BTC's long-account percentage, 50 when absent.
func (f Feed) btcLongPct() float64 {
	for _, ls := range f.LongShort {
		if ls.Symbol == btcSymbol {
			return ls.LongPct
		}
	}
	return 50
}

// btcOIChange returns BTC's 24h open-interest change, 0 when absent.
func (f Feed) btcOIChange() float64 {
	for _, oi := range f.OpenInterest {
		if oi.Symbol == btcSymbol {
			return oi.Change24h
		}
	}
	return 0
}

// Compute derives the full metrics object from one raw-feed batch.
func Compute(feed Feed) model.DerivedMetrics {
	return model.DerivedMetrics{
		FundingRates: feed.Funding,
		OpenInterest: feed.OpenInterest,
		LongShort:    feed.LongShort,
		Global:       feed.Global,
		AltSeason:    altSeason(feed.Global.BTCDominance, feed.Tickers),
		Sectors:      sectorPerformance(feed.Tickers),
		WhaleFlow:    whaleFlow(feed.OpenInterest, feed.LongShort),
		Anomalies:    detectAnomalies(feed),
		Scenario:     classifyScenario(feed),
		ComputedAt:   time.Now().UTC(),
	}
}

// whaleFlow estimates net positioning flow from open interest and the
// long/short skew. This is a directional proxy, not on-chain truth: it
// assumes account skew approximates notional skew, which it only loosely
// does.
func whaleFlow(oi []model.OpenInterestStat, ls []model.LongShortStat) model.WhaleFlow {
	skew := make(map[string]model.LongShortStat, len(ls))
	for _, s := range ls {
		skew[s.Symbol] = s
	}

	var long, short float64
	for _, stat := range oi {
		s, ok := skew[stat.Symbol]
		if !ok {
			continue
		}
		long += stat.NotionalUSD * s.LongPct / 100
		short += stat.NotionalUSD * s.ShortPct / 100
	}

	return model.WhaleFlow{
		NetUSD:    (short - long) * whaleFlowScale,
		LongUSD:   long,
		ShortUSD:  short,
		Timestamp: time.Now().UTC(),
	}
}

// detectAnomalies flags live unusual conditions in the raw feed.
func detectAnomalies(feed Feed) []model.Anomaly {
	var out []model.Anomaly

	for _, fr := range feed.Funding {
		if abs(fr.Rate) >= fundingExtremeAbs {
			out = append(out, model.Anomaly{
				Symbol:   fr.Symbol,
				Kind:     "funding-extreme",
				Detail:   fmt.Sprintf("funding rate %.4f", fr.Rate),
				Severity: abs(fr.Rate) / fundingExtremeAbs,
			})
		}
	}

	for _, oi := range feed.OpenInterest {
		if abs(oi.Change24h) >= oiSurgeAbsPct {
			out = append(out, model.Anomaly{
				Symbol:   oi.Symbol,
				Kind:     "oi-surge",
				Detail:   fmt.Sprintf("open interest %+.1f%% in 24h", oi.Change24h),
				Severity: abs(oi.Change24h) / oiSurgeAbsPct,
			})
		}
	}

	for _, ls := range feed.LongShort {
		if ls.LongPct >= skewHighPct || ls.LongPct <= skewLowPct {
			out = append(out, model.Anomaly{
				Symbol:   ls.Symbol,
				Kind:     "positioning-skew",
				Detail:   fmt.Sprintf("%.1f%% accounts long", ls.LongPct),
				Severity: abs(ls.LongPct-50) / 50,
			})
		}
	}

	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
