package analytics

import (
	"math"

	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

// Classifier thresholds. First match in priority order wins; the
// decision tree is deliberately flat so the priority is auditable.
const (
	crashDropPct    = -5.0 // BTC 24h change at or below this
	euphoriaFunding = 0.03 // Funding above this with crowded longs
	euphoriaLongPct = 58.0
	breakoutRisePct = 3.0  // BTC 24h change at or above this with rising OI
	squeezeShortPct = 58.0 // Short accounts above this with negative funding
)

// classifyScenario selects exactly one scenario from the feed.
//
// Priority: crash-reversal > euphoria-top > breakout-continuation >
// short-squeeze-setup > consolidation. Consolidation is the default when
// nothing else matches.
func classifyScenario(feed Feed) model.Scenario {
	btcChange := feed.btcChange24h()
	funding := feed.btcFunding()
	longPct := feed.btcLongPct()
	oiChange := feed.btcOIChange()
	price := feed.BTCPrice

	switch {
	case btcChange <= crashDropPct:
		return crashReversal(price, btcChange, funding)

	case funding > euphoriaFunding && longPct > euphoriaLongPct:
		return euphoriaTop(price, funding, longPct)

	case btcChange >= breakoutRisePct && oiChange > 0:
		return breakoutContinuation(price, btcChange, oiChange)

	case (100-longPct) > squeezeShortPct && funding < 0:
		return shortSqueezeSetup(price, funding, longPct)

	default:
		return consolidation(price, btcChange)
	}
}

func crashReversal(price, btcChange, funding float64) model.Scenario {
	return model.Scenario{
		Kind: model.ScenarioCrashReversal,
		BullCase: "Forced selling exhausts itself near support; flushed leverage " +
			"leaves room for a sharp mean-reversion bounce.",
		BearCase: "The first bounce gets sold; losing the capitulation low opens " +
			"the next leg down.",
		Levels: []model.PriceLevel{
			{Label: "capitulation support", Price: roundLevel(price * 0.92)},
			{Label: "reclaim level", Price: roundLevel(price * 1.05)},
		},
		Confidence: confidence(
			signal(-btcChange, -crashDropPct, 15), // Depth of the drop
			signal(-funding, 0.01, 0.05),          // Negative funding adds conviction
		),
	}
}

func euphoriaTop(price, funding, longPct float64) model.Scenario {
	return model.Scenario{
		Kind: model.ScenarioEuphoriaTop,
		BullCase: "Momentum can stay irrational; shorts fighting the trend keep " +
			"fueling pushes to new highs.",
		BearCase: "Crowded longs paying rich funding are the fuel for a violent " +
			"long-squeeze flush.",
		Levels: []model.PriceLevel{
			{Label: "blow-off extension", Price: roundLevel(price * 1.08)},
			{Label: "flush target", Price: roundLevel(price * 0.90)},
		},
		Confidence: confidence(
			signal(funding, euphoriaFunding, 0.1),
			signal(longPct, euphoriaLongPct, 75),
		),
	}
}

func breakoutContinuation(price, btcChange, oiChange float64) model.Scenario {
	return model.Scenario{
		Kind: model.ScenarioBreakout,
		BullCase: "Fresh open interest confirms the move; dips to the breakout " +
			"level keep getting bought.",
		BearCase: "A failed retest with OI unwinding turns the breakout into a " +
			"bull trap.",
		Levels: []model.PriceLevel{
			{Label: "breakout retest", Price: roundLevel(price * 0.97)},
			{Label: "measured extension", Price: roundLevel(price * 1.10)},
		},
		Confidence: confidence(
			signal(btcChange, breakoutRisePct, 10),
			signal(oiChange, 0, 20),
		),
	}
}

func shortSqueezeSetup(price, funding, longPct float64) model.Scenario {
	return model.Scenario{
		Kind: model.ScenarioShortSqueeze,
		BullCase: "Crowded shorts paying negative funding are forced buyers on " +
			"any push higher.",
		BearCase: "Shorts are right: the squeeze never fires and persistent " +
			"selling grinds price down.",
		Levels: []model.PriceLevel{
			{Label: "squeeze trigger", Price: roundLevel(price * 1.04)},
			{Label: "invalidation", Price: roundLevel(price * 0.94)},
		},
		Confidence: confidence(
			signal(100-longPct, squeezeShortPct, 75),
			signal(-funding, 0, 0.05),
		),
	}
}

func consolidation(price, btcChange float64) model.Scenario {
	return model.Scenario{
		Kind: model.ScenarioConsolidation,
		BullCase: "Compression resolves upward: quiet accumulation under " +
			"resistance precedes the next marked-up range.",
		BearCase: "Distribution in disguise: the range breaks down once passive " +
			"bids are filled.",
		Levels: []model.PriceLevel{
			{Label: "range high", Price: roundLevel(price * 1.03)},
			{Label: "range low", Price: roundLevel(price * 0.97)},
		},
		// Low-information default: confidence tracks how quiet the tape is.
		Confidence: confidence(signal(3-abs(btcChange), 0, 3)),
	}
}

// signal normalizes a reading against its trigger threshold and an
// extreme bound into [0,1].
func signal(value, threshold, extreme float64) float64 {
	if extreme == threshold {
		return 0
	}
	s := (value - threshold) / (extreme - threshold)
	return math.Max(0, math.Min(1, s))
}

// confidence averages signal strengths into a 0-100 score with a floor:
// a scenario that matched at all starts from 40.
func confidence(signals ...float64) int {
	if len(signals) == 0 {
		return 40
	}
	var sum float64
	for _, s := range signals {
		sum += s
	}
	score := 40 + 60*(sum/float64(len(signals)))
	return clampInt(int(math.Round(score)), 0, 100)
}

// roundLevel rounds a price to a magnitude-appropriate step so key levels
// read like chart levels rather than float noise.
func roundLevel(price float64) float64 {
	step := levelStep(price)
	return math.Round(price/step) * step
}

func levelStep(price float64) float64 {
	switch {
	case price >= 10000:
		return 100
	case price >= 1000:
		return 10
	case price >= 100:
		return 1
	case price >= 1:
		return 0.1
	case price >= 0.01:
		return 0.001
	default:
		return 0.000001
	}
}
