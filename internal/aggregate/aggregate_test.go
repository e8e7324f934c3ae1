package aggregate

import (
	"testing"
	"time"

	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

func detailedBTC() model.PriceRecord {
	return model.PriceRecord{
		Price:     60000,
		Change24h: model.Float64(1.2),
		Change7d:  model.Float64(5.5),
		MarketCap: 1.2e12,
		Liquidity: 5e8,
		LogoURL:   "https://img/btc.png",
		Source:    model.SourceDetailed,
		UpdatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAggregator_MergeFastOverDetailed(t *testing.T) {
	a := New(DefaultConfig(), nil)

	a.Apply("BTC", detailedBTC())

	fast := model.PriceRecord{
		Price:     60500,
		Change24h: model.Float64(1.3),
		Source:    model.SourceFast,
		UpdatedAt: time.Date(2024, 6, 1, 12, 0, 5, 0, time.UTC),
	}
	if changed := a.Apply("BTC", fast); !changed {
		t.Fatal("fast update with new price should report a change")
	}

	got, ok := a.Get("BTC")
	if !ok {
		t.Fatal("BTC missing")
	}
	if got.Price != 60500 {
		t.Errorf("Price = %v, want 60500 (fast wins on price)", got.Price)
	}
	if got.Change24h == nil || *got.Change24h != 1.3 {
		t.Errorf("Change24h = %v, want 1.3", got.Change24h)
	}
	if got.MarketCap != 1.2e12 {
		t.Errorf("MarketCap = %v, want 1.2e12 (preserved from detailed)", got.MarketCap)
	}
	if got.Liquidity != 5e8 {
		t.Errorf("Liquidity = %v, want 5e8 (preserved from detailed)", got.Liquidity)
	}
	if got.LogoURL != "https://img/btc.png" {
		t.Errorf("LogoURL = %q, want preserved", got.LogoURL)
	}
	if got.Change7d == nil || *got.Change7d != 5.5 {
		t.Errorf("Change7d = %v, want 5.5 (preserved from detailed)", got.Change7d)
	}
}

func TestAggregator_ZeroPriceNeverOverwrites(t *testing.T) {
	a := New(DefaultConfig(), nil)
	a.Apply("BTC", detailedBTC())

	a.Apply("BTC", model.PriceRecord{
		Price:  0,
		Source: model.SourceFast,
	})

	got, _ := a.Get("BTC")
	if got.Price != 60000 {
		t.Errorf("Price = %v, want 60000 (price<=0 is no-data, not zero)", got.Price)
	}
}

func TestAggregator_FastNeverClearsDetailFields(t *testing.T) {
	a := New(DefaultConfig(), nil)
	a.Apply("BTC", detailedBTC())

	// Fast record with zero caps and nil horizon changes.
	a.Apply("BTC", model.PriceRecord{
		Price:  60100,
		Source: model.SourceFast,
	})

	got, _ := a.Get("BTC")
	if got.MarketCap == 0 || got.Liquidity == 0 || got.LogoURL == "" {
		t.Errorf("fast update cleared detail fields: %+v", got)
	}
	if got.Change7d == nil {
		t.Error("fast update cleared Change7d")
	}
}

func TestAggregator_IdempotentMergeSuppressesEvent(t *testing.T) {
	a := New(DefaultConfig(), nil)

	rec := detailedBTC()
	a.Apply("BTC", rec)
	drainEvents(a)

	before, _ := a.Get("BTC")
	if changed := a.Apply("BTC", rec); changed {
		t.Error("identical record should not report a change")
	}
	after, _ := a.Get("BTC")

	if before != after {
		t.Errorf("snapshot changed on idempotent merge:\nbefore %+v\nafter  %+v", before, after)
	}
	select {
	case ev := <-a.Events():
		t.Errorf("unexpected event for idempotent merge: %+v", ev)
	default:
	}
}

func TestAggregator_EventOnRealChange(t *testing.T) {
	a := New(DefaultConfig(), nil)
	a.Apply("BTC", detailedBTC())
	drainEvents(a)

	fast := model.PriceRecord{Price: 61000, Source: model.SourceFast}
	a.Apply("BTC", fast)

	select {
	case ev := <-a.Events():
		if ev.Key != "BTC" {
			t.Errorf("event key = %q, want BTC", ev.Key)
		}
		if ev.Record.Price != 61000 {
			t.Errorf("event price = %v, want 61000", ev.Record.Price)
		}
	default:
		t.Error("expected a change event")
	}
}

func TestAggregator_SourceRecordsReplaced(t *testing.T) {
	a := New(DefaultConfig(), nil)

	a.Apply("BTC", model.PriceRecord{Price: 100, Source: model.SourceFast})
	a.Apply("BTC", model.PriceRecord{Price: 200, Source: model.SourceFast})

	rec, ok := a.SourceRecord("BTC", model.SourceFast)
	if !ok {
		t.Fatal("fast record missing")
	}
	if rec.Price != 200 {
		t.Errorf("SourceRecord price = %v, want 200 (replaced, not appended)", rec.Price)
	}
}

func TestAggregator_EndToEndMergeScenario(t *testing.T) {
	// Detailed record at t=0, fast record at t=5s: price and change come
	// from the fast source, market cap survives from the detailed one.
	a := New(DefaultConfig(), nil)

	a.Apply("BTC", model.PriceRecord{
		Price:     60000,
		Change24h: model.Float64(1.2),
		MarketCap: 1.2e12,
		Source:    model.SourceDetailed,
	})
	a.Apply("BTC", model.PriceRecord{
		Price:     60500,
		Change24h: model.Float64(1.3),
		Source:    model.SourceFast,
	})

	got, _ := a.Get("BTC")
	if got.Price != 60500 {
		t.Errorf("Price = %v, want 60500", got.Price)
	}
	if got.Change24h == nil || *got.Change24h != 1.3 {
		t.Errorf("Change24h = %v, want 1.3", got.Change24h)
	}
	if got.MarketCap != 1.2e12 {
		t.Errorf("MarketCap = %v, want 1.2e12", got.MarketCap)
	}
}

func TestAggregator_Hydrate(t *testing.T) {
	a := New(DefaultConfig(), nil)
	a.Apply("BTC", model.PriceRecord{Price: 61000, Source: model.SourceFast})

	a.Hydrate(model.Snapshot{
		Records: map[string]model.PriceRecord{
			"BTC": {Price: 59000}, // Stale: must not beat live data
			"ETH": {Price: 2400},  // New: fills the gap
		},
	})

	btc, _ := a.Get("BTC")
	if btc.Price != 61000 {
		t.Errorf("BTC price = %v, want 61000 (live wins over hydration)", btc.Price)
	}
	eth, ok := a.Get("ETH")
	if !ok || eth.Price != 2400 {
		t.Errorf("ETH = %+v, want hydrated 2400", eth)
	}
}

func drainEvents(a *Aggregator) {
	for {
		select {
		case <-a.Events():
		default:
			return
		}
	}
}
