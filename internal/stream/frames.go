package stream

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

// Wire protocol. Outbound control frames select which instruments the
// upstream pushes; the only inbound frame the sync core consumes is
// price_update. Addresses and network ids travel lowercased so the
// upstream and the canonical key space agree.

const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	framePriceUpdate = "price_update"
)

type controlFrame struct {
	Type      string `json:"type"`
	Address   string `json:"address"`
	NetworkID string `json:"networkId"`
}

type priceUpdateFrame struct {
	Type      string  `json:"type"`
	Address   string  `json:"address"`
	NetworkID string  `json:"networkId"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	Volume    float64 `json:"volume"`
}

// encodeControl builds a subscribe or unsubscribe frame in canonical form.
func encodeControl(frameType, address, network string) ([]byte, error) {
	return json.Marshal(controlFrame{
		Type:      frameType,
		Address:   strings.ToLower(address),
		NetworkID: strings.ToLower(network),
	})
}

// decodeUpdate parses one inbound frame. Frames that are not price updates,
// or not JSON at all, report ok=false and are dropped by the caller.
func decodeUpdate(data []byte, receivedAt time.Time) (PriceUpdate, bool) {
	var frame priceUpdateFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return PriceUpdate{}, false
	}
	if frame.Type != framePriceUpdate {
		return PriceUpdate{}, false
	}

	return PriceUpdate{
		Key:        model.CanonicalKey(frame.Address, frame.NetworkID),
		Price:      frame.Price,
		Change24h:  frame.Change,
		Volume24h:  frame.Volume,
		ReceivedAt: receivedAt,
	}, true
}
