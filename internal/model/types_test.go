package model

import "testing"

func TestInstrument_Key(t *testing.T) {
	tests := []struct {
		name string
		inst Instrument
		want string
	}{
		{
			name: "major by symbol uppercased",
			inst: Instrument{Symbol: "btc", Class: ClassMajor},
			want: "BTC",
		},
		{
			name: "onchain by address+network lowercased",
			inst: Instrument{
				Symbol:  "PEPE",
				Address: "0xABCDef0123",
				Network: "Ethereum",
				Class:   ClassOnChain,
			},
			want: "0xabcdef0123:ethereum",
		},
		{
			name: "address takes precedence over symbol",
			inst: Instrument{Symbol: "SOL", Address: "So111", Network: "solana"},
			want: "so111:solana",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inst.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPriceRecord_HasPrice(t *testing.T) {
	if (PriceRecord{Price: 0}).HasPrice() {
		t.Error("zero price should not count as data")
	}
	if (PriceRecord{Price: -1}).HasPrice() {
		t.Error("negative price should not count as data")
	}
	if !(PriceRecord{Price: 0.0001}).HasPrice() {
		t.Error("positive price should count as data")
	}
}

func TestPriceRecord_Equal(t *testing.T) {
	base := PriceRecord{
		Price:     60000,
		Change24h: Float64(1.2),
		MarketCap: 1.2e12,
		LogoURL:   "https://img/btc.png",
	}

	same := base
	same.Source = SourceFast // Source is ignored by Equal
	if !base.Equal(same) {
		t.Error("records differing only in Source should be equal")
	}

	diff := base
	diff.Price = 60001
	if base.Equal(diff) {
		t.Error("records with different prices should not be equal")
	}

	nilChange := base
	nilChange.Change24h = nil
	if base.Equal(nilChange) {
		t.Error("nil change should differ from set change")
	}
}

func TestSnapshot_Clone(t *testing.T) {
	s := Snapshot{Records: map[string]PriceRecord{"BTC": {Price: 1}}}
	c := s.Clone()

	c.Records["ETH"] = PriceRecord{Price: 2}
	if _, ok := s.Records["ETH"]; ok {
		t.Error("mutating clone should not affect original")
	}
}
