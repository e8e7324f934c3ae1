package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

func TestClient_FetchFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/prices" {
			t.Errorf("path = %q, want /v1/prices", r.URL.Path)
		}
		if keys := r.URL.Query().Get("keys"); keys != "BTC,ETH" {
			t.Errorf("keys = %q, want BTC,ETH", keys)
		}
		w.Write([]byte(`{"data":{
			"BTC": {"price": 60500, "change24h": 1.3, "volume24h": 3.1e10},
			"ETH": {"price": 2400.5, "change24h": -0.8, "volume24h": 1.4e10}
		}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")

	got, err := c.FetchFast(context.Background(), []string{"BTC", "ETH"})
	if err != nil {
		t.Fatalf("FetchFast failed: %v", err)
	}

	btc, ok := got["BTC"]
	if !ok {
		t.Fatal("BTC missing from result")
	}
	if btc.Price != 60500 {
		t.Errorf("Price = %v, want 60500", btc.Price)
	}
	if btc.Change24h == nil || *btc.Change24h != 1.3 {
		t.Errorf("Change24h = %v, want 1.3", btc.Change24h)
	}
	if btc.Source != model.SourceFast {
		t.Errorf("Source = %v, want %v", btc.Source, model.SourceFast)
	}
	if btc.MarketCap != 0 {
		t.Errorf("MarketCap = %v, want 0 (fast source has no caps)", btc.MarketCap)
	}
}

func TestClient_FetchDetailed_PartialFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tokens" {
			t.Errorf("path = %q, want /v1/tokens", r.URL.Path)
		}
		// change7d deliberately missing: must decode as nil, not zero.
		w.Write([]byte(`{"data":{
			"BTC": {"price": 60000, "change24h": 1.2, "marketCap": 1.2e12,
			        "liquidity": 5e8, "logo": "https://img/btc.png", "change30d": 12.5}
		}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")

	got, err := c.FetchDetailed(context.Background(), []string{"BTC"})
	if err != nil {
		t.Fatalf("FetchDetailed failed: %v", err)
	}

	btc := got["BTC"]
	if btc.Source != model.SourceDetailed {
		t.Errorf("Source = %v, want %v", btc.Source, model.SourceDetailed)
	}
	if btc.MarketCap != 1.2e12 {
		t.Errorf("MarketCap = %v, want 1.2e12", btc.MarketCap)
	}
	if btc.LogoURL != "https://img/btc.png" {
		t.Errorf("LogoURL = %q", btc.LogoURL)
	}
	if btc.Change7d != nil {
		t.Errorf("Change7d = %v, want nil (absent on wire)", *btc.Change7d)
	}
	if btc.Change30d == nil || *btc.Change30d != 12.5 {
		t.Errorf("Change30d = %v, want 12.5", btc.Change30d)
	}
}

func TestClient_FetchPrices_EmptyKeys(t *testing.T) {
	c := NewClient("http://unreachable.invalid", "")

	got, err := c.FetchFast(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchFast with no keys should not hit the network: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(got) = %d, want 0", len(got))
	}
}

func TestClient_FetchDerivatives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"funding": [{"symbol": "BTC", "fundingRate": 0.012}],
			"openInterest": [{"symbol": "BTC", "openInterestUsd": 1.8e10, "change24h": 4.2}],
			"longShort": [{"symbol": "BTC", "longPct": 55.5, "shortPct": 44.5}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")

	got, err := c.FetchDerivatives(context.Background())
	if err != nil {
		t.Fatalf("FetchDerivatives failed: %v", err)
	}
	if len(got.Funding) != 1 || got.Funding[0].Rate != 0.012 {
		t.Errorf("Funding = %+v", got.Funding)
	}
	if len(got.OpenInterest) != 1 || got.OpenInterest[0].NotionalUSD != 1.8e10 {
		t.Errorf("OpenInterest = %+v", got.OpenInterest)
	}
	if len(got.LongShort) != 1 || got.LongShort[0].LongPct != 55.5 {
		t.Errorf("LongShort = %+v", got.LongShort)
	}
}

func TestClient_FetchGlobal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"totalMarketCapUsd": 2.4e12, "btcDominance": 54.2, "stablecoinDominance": 7.1}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")

	got, err := c.FetchGlobal(context.Background())
	if err != nil {
		t.Fatalf("FetchGlobal failed: %v", err)
	}
	if got.BTCDominance != 54.2 {
		t.Errorf("BTCDominance = %v, want 54.2", got.BTCDominance)
	}
	if got.TotalMarketCapUSD != 2.4e12 {
		t.Errorf("TotalMarketCapUSD = %v, want 2.4e12", got.TotalMarketCapUSD)
	}
}
