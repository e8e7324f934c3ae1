package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAPITimeout   = 15 * time.Second
	DefaultMaxRetries   = 2
	DefaultRetryWait    = 3 * time.Second
	DefaultMaxFailures  = 3
	DefaultPingTimeout  = 60 * time.Second
	DefaultWriteTimeout = 5 * time.Second

	DefaultFastInterval     = 5 * time.Second
	DefaultDetailedInterval = 60 * time.Second
	DefaultFeedInterval     = 180 * time.Second
	DefaultConcurrency      = 5
	DefaultBatchPause       = 250 * time.Millisecond
	DefaultDedupTTL         = 5 * time.Second

	DefaultBackgroundMultiplier = 6

	DefaultRedisAddr   = "localhost:6379"
	DefaultCacheKey    = "marketsync:snapshot"
	DefaultCacheMaxAge = 5 * time.Minute
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Stream defaults
	if c.Stream.RetryWait == 0 {
		c.Stream.RetryWait = DefaultRetryWait
	}
	if c.Stream.MaxFailures == 0 {
		c.Stream.MaxFailures = DefaultMaxFailures
	}
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}

	// Poller defaults
	if c.Poller.FastInterval == 0 {
		c.Poller.FastInterval = DefaultFastInterval
	}
	if c.Poller.DetailedInterval == 0 {
		c.Poller.DetailedInterval = DefaultDetailedInterval
	}
	if c.Poller.FeedInterval == 0 {
		c.Poller.FeedInterval = DefaultFeedInterval
	}
	if c.Poller.Concurrency == 0 {
		c.Poller.Concurrency = DefaultConcurrency
	}
	if c.Poller.BatchPause == 0 {
		c.Poller.BatchPause = DefaultBatchPause
	}
	if c.Poller.DedupTTL == 0 {
		c.Poller.DedupTTL = DefaultDedupTTL
	}

	// Visibility defaults
	if c.Visibility.BackgroundMultiplier == 0 {
		c.Visibility.BackgroundMultiplier = DefaultBackgroundMultiplier
	}

	// Cache defaults
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = DefaultRedisAddr
	}
	if c.Cache.Key == "" {
		c.Cache.Key = DefaultCacheKey
	}
	if c.Cache.MaxAge == 0 {
		c.Cache.MaxAge = DefaultCacheMaxAge
	}
}
