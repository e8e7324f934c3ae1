package stream

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrAbandoned       = errors.New("channel abandoned, use REST fallback")
)

// PriceUpdate is a parsed push update handed to subscription callbacks.
// Key is the canonical instrument key.
type PriceUpdate struct {
	Key        string
	Price      float64
	Change24h  float64
	Volume24h  float64
	ReceivedAt time.Time
}

// UpdateFunc receives routed updates for one subscription.
type UpdateFunc func(PriceUpdate)

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string
	APIKey       string
	PingTimeout  time.Duration // Max time without ping before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Update channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

// ChannelState is the connection lifecycle state of the push channel.
type ChannelState string

const (
	StateConnecting ChannelState = "connecting"
	StateOpen       ChannelState = "open"
	StateRetrying   ChannelState = "closed-retrying"
	StateAbandoned  ChannelState = "abandoned" // Terminal
)

// ChannelConfig configures the push channel.
type ChannelConfig struct {
	RetryWait   time.Duration // Fixed wait between reconnect attempts
	MaxFailures int           // Consecutive connect failures before abandoning
}

// DefaultChannelConfig returns sensible defaults.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		RetryWait:   3 * time.Second,
		MaxFailures: 3,
	}
}
