package analytics

import (
	"math"

	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

const (
	// altSeasonPivot is the BTC dominance at which the base index reads
	// zero; each point of dominance below it adds two index points.
	altSeasonPivot = 65.0

	// altOutperformMargin is how far an alt's 24h change must beat BTC's
	// to count as outperforming.
	altOutperformMargin = 2.0

	// altLiquidVolumeMin filters the ticker board down to liquid alts.
	altLiquidVolumeMin = 1e7

	altSeasonBonusMax = 5
)

// stablecoins are excluded from alt outperformance counting.
var stablecoins = map[string]bool{
	"USDT": true, "USDC": true, "DAI": true, "FDUSD": true, "TUSD": true,
}

// altSeason computes the 0-100 alt-season index and its label.
//
// Base index: (pivot - btcDominance) * 2, clamped to [0,100]. A bonus of
// up to five points applies when a majority of liquid alts outperform
// BTC's 24h change by the margin. The final value is clamped again so the
// bonus can never push it past 100.
func altSeason(btcDominance float64, tickers []model.TickerStat) model.AltSeason {
	index := clampInt(int(math.Round((altSeasonPivot-btcDominance)*2)), 0, 100)
	index = clampInt(index+altOutperformBonus(tickers), 0, 100)

	return model.AltSeason{
		Index: index,
		Label: altSeasonLabel(index),
	}
}

// altOutperformBonus returns 0-5 points based on the fraction of liquid
// alts beating BTC by the margin. Below a strict majority the bonus is
// zero.
func altOutperformBonus(tickers []model.TickerStat) int {
	var btcChange float64
	for _, tk := range tickers {
		if tk.Symbol == btcSymbol {
			btcChange = tk.Change24h
			break
		}
	}

	var alts, beating int
	for _, tk := range tickers {
		if tk.Symbol == btcSymbol || stablecoins[tk.Symbol] {
			continue
		}
		if tk.Volume24h < altLiquidVolumeMin {
			continue
		}
		alts++
		if tk.Change24h >= btcChange+altOutperformMargin {
			beating++
		}
	}

	if alts == 0 || beating*2 <= alts {
		return 0
	}

	frac := float64(beating) / float64(alts)
	bonus := int(math.Round((frac - 0.5) * 2 * altSeasonBonusMax))
	return clampInt(bonus, 0, altSeasonBonusMax)
}

func altSeasonLabel(index int) string {
	switch {
	case index >= 75:
		return "Alt Season"
	case index >= 50:
		return "Rotation"
	case index >= 25:
		return "BTC Season"
	default:
		return "BTC Dominant"
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
