package analytics

import (
	"sort"

	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

// sectorGroups is the fixed symbol-to-sector mapping. Symbols missing
// from the ticker board simply do not contribute to their sector's
// average.
var sectorGroups = map[string][]string{
	"Layer 1": {"BTC", "ETH", "SOL", "ADA", "AVAX", "NEAR"},
	"Layer 2": {"ARB", "OP", "MATIC", "STRK"},
	"DeFi":    {"UNI", "AAVE", "MKR", "CRV", "LDO"},
	"Meme":    {"DOGE", "SHIB", "PEPE", "WIF"},
	"AI":      {"FET", "RNDR", "TAO", "GRT"},
	"Gaming":  {"IMX", "SAND", "AXS", "GALA"},
}

// Breakpoints on a sector's average 24h change mapping to its lifecycle
// stage. A deeply red sector is "early" (rotation has not reached it);
// a vertical one is "exhausted".
var stageBreaks = []struct {
	min   float64
	stage model.SectorStage
}{
	{12, model.StageExhaust},
	{7, model.StageLate},
	{3, model.StageMidLate},
	{0, model.StageMid},
	{-5, model.StageEarlyMid},
}

// sectorStage maps an average 24h change to one of six stages.
func sectorStage(avgChange float64) model.SectorStage {
	for _, b := range stageBreaks {
		if avgChange >= b.min {
			return b.stage
		}
	}
	return model.StageEarly
}

// sectorPerformance computes the average 24h change and stage per sector,
// sorted best-performing first.
func sectorPerformance(tickers []model.TickerStat) []model.SectorPerformance {
	bySymbol := make(map[string]model.TickerStat, len(tickers))
	for _, tk := range tickers {
		bySymbol[tk.Symbol] = tk
	}

	out := make([]model.SectorPerformance, 0, len(sectorGroups))
	for name, symbols := range sectorGroups {
		var sum float64
		var present []string
		for _, sym := range symbols {
			tk, ok := bySymbol[sym]
			if !ok {
				continue
			}
			sum += tk.Change24h
			present = append(present, sym)
		}
		if len(present) == 0 {
			continue
		}

		avg := sum / float64(len(present))
		out = append(out, model.SectorPerformance{
			Name:      name,
			Symbols:   present,
			AvgChange: avg,
			Stage:     sectorStage(avg),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgChange != out[j].AvgChange {
			return out[i].AvgChange > out[j].AvgChange
		}
		return out[i].Name < out[j].Name
	})

	return out
}
