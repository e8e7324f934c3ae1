package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.Stream.URL == "" {
		return errors.New("stream.url is required")
	}

	if c.Stream.MaxFailures < 1 {
		return errors.New("stream.max_failures must be >= 1")
	}

	if c.Poller.Concurrency < 1 {
		return errors.New("poller.concurrency must be >= 1")
	}
	if c.Poller.FastInterval <= 0 {
		return errors.New("poller.fast_interval must be positive")
	}
	if c.Poller.DetailedInterval <= 0 {
		return errors.New("poller.detailed_interval must be positive")
	}
	if c.Poller.FeedInterval <= 0 {
		return errors.New("poller.feed_interval must be positive")
	}

	if c.Visibility.BackgroundMultiplier < 5 || c.Visibility.BackgroundMultiplier > 10 {
		return fmt.Errorf("visibility.background_multiplier must be between 5 and 10, got %d",
			c.Visibility.BackgroundMultiplier)
	}

	if c.Cache.MaxAge <= 0 {
		return errors.New("cache.max_age must be positive")
	}

	return nil
}
