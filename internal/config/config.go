package config

import "time"

// Config is the root configuration for a sync daemon instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	API        APIConfig        `yaml:"api"`
	Stream     StreamConfig     `yaml:"stream"`
	Poller     PollerConfig     `yaml:"poller"`
	Visibility VisibilityConfig `yaml:"visibility"`
	Cache      CacheConfig      `yaml:"cache"`
}

// InstanceConfig identifies this daemon.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds REST provider settings. BaseURL and APIKey cover all
// three endpoint families; the per-family blocks point one family at a
// different provider when set.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`

	Fast     EndpointConfig `yaml:"fast"`
	Detailed EndpointConfig `yaml:"detailed"`
	Feed     EndpointConfig `yaml:"feed"`
}

// EndpointConfig overrides the provider for one endpoint family. A zero
// value means the family uses the shared BaseURL and APIKey.
type EndpointConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// StreamConfig holds websocket channel settings.
type StreamConfig struct {
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"api_key"`
	RetryWait    time.Duration `yaml:"retry_wait"`
	MaxFailures  int           `yaml:"max_failures"`
	PingTimeout  time.Duration `yaml:"ping_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PollerConfig holds refresh cadence and batching settings.
type PollerConfig struct {
	FastInterval     time.Duration `yaml:"fast_interval"`
	DetailedInterval time.Duration `yaml:"detailed_interval"`
	FeedInterval     time.Duration `yaml:"feed_interval"`
	Concurrency      int           `yaml:"concurrency"`
	BatchPause       time.Duration `yaml:"batch_pause"`
	DedupTTL         time.Duration `yaml:"dedup_ttl"`
}

// VisibilityConfig holds foreground/background pacing settings.
type VisibilityConfig struct {
	BackgroundMultiplier int `yaml:"background_multiplier"`
}

// CacheConfig holds the redis snapshot cache settings.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Key           string        `yaml:"key"`
	MaxAge        time.Duration `yaml:"max_age"`
}
