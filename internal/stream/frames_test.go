package stream

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEncodeControl_CanonicalizesFields(t *testing.T) {
	data, err := encodeControl(frameSubscribe, "0xAbCdEf", "Ethereum")
	if err != nil {
		t.Fatalf("encodeControl failed: %v", err)
	}

	var frame controlFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if frame.Type != "subscribe" {
		t.Errorf("type = %q, want subscribe", frame.Type)
	}
	if frame.Address != "0xabcdef" {
		t.Errorf("address = %q, want 0xabcdef", frame.Address)
	}
	if frame.NetworkID != "ethereum" {
		t.Errorf("networkId = %q, want ethereum", frame.NetworkID)
	}
}

func TestDecodeUpdate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		data    string
		wantOK  bool
		wantKey string
	}{
		{
			name:    "price update with mixed-case fields",
			data:    `{"type":"price_update","address":"0xABC","networkId":"ETH","price":1.5,"change":-3.2,"volume":1000000}`,
			wantOK:  true,
			wantKey: "0xabc:eth",
		},
		{
			name:   "non-price frame dropped",
			data:   `{"type":"pong"}`,
			wantOK: false,
		},
		{
			name:   "malformed json dropped",
			data:   `{"type":"price_update",`,
			wantOK: false,
		},
		{
			name:   "empty frame dropped",
			data:   `{}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update, ok := decodeUpdate([]byte(tt.data), now)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if update.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", update.Key, tt.wantKey)
			}
			if update.Price != 1.5 || update.Change24h != -3.2 || update.Volume24h != 1000000 {
				t.Errorf("update = %+v", update)
			}
			if !update.ReceivedAt.Equal(now) {
				t.Errorf("receivedAt = %v, want %v", update.ReceivedAt, now)
			}
		})
	}
}
