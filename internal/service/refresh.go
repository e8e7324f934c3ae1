package service

import (
	"context"

	"github.com/mavismavis1124-blip/marketsync/internal/analytics"
	"github.com/mavismavis1124-blip/marketsync/internal/batch"
	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

// maxKeysPerRequest caps how many keys one REST call carries; larger watch
// sets are split into chunks and run through the batcher.
const maxKeysPerRequest = 25

// feedResult is the assembled raw feed shared by deduplicated callers.
type feedResult struct {
	feed analytics.Feed
}

// Refresh forces one full synchronization cycle: fast prices, detailed
// tokens, and the raw derivatives feed. Upstream failures degrade to stale
// data; the only returned error is the context's.
func (s *Service) Refresh(ctx context.Context) error {
	s.refreshFast(ctx)
	s.refreshDetailed(ctx)
	s.refreshFeed(ctx)
	return ctx.Err()
}

// refreshFast polls the fast price endpoint for every key on the REST path.
func (s *Service) refreshFast(ctx context.Context) {
	keys := s.restKeys()
	if len(keys) == 0 {
		return
	}

	records, err := s.priceGroup.Do(ctx, "fast", func(ctx context.Context) (map[string]model.PriceRecord, error) {
		return s.fetchChunked(ctx, keys, s.prices.FetchFast), nil
	})
	if err != nil {
		return
	}
	s.applyPrices(records)
	s.persist(ctx)
}

// refreshDetailed polls the detailed token endpoint for every watched key.
func (s *Service) refreshDetailed(ctx context.Context) {
	keys := s.allKeys()
	if len(keys) == 0 {
		return
	}

	records, err := s.priceGroup.Do(ctx, "detailed", func(ctx context.Context) (map[string]model.PriceRecord, error) {
		return s.fetchChunked(ctx, keys, s.prices.FetchDetailed), nil
	})
	if err != nil {
		return
	}
	s.applyPrices(records)
	s.persist(ctx)
}

// refreshFeed fetches the raw derivatives feed and recomputes analytics.
// Any fetch failure keeps the previous metrics.
func (s *Service) refreshFeed(ctx context.Context) {
	if s.feed == nil {
		return
	}

	res, err := s.feedGroup.Do(ctx, "feed", func(ctx context.Context) (feedResult, error) {
		return s.assembleFeed(ctx)
	})
	if err != nil {
		s.logger.Warn("raw feed refresh failed, keeping stale metrics", "error", err)
		return
	}

	metrics := analytics.Compute(res.feed)
	s.metricsMu.Lock()
	s.metrics = metrics
	s.metricsMu.Unlock()

	s.logger.Debug("derived metrics recomputed",
		"alt_season", metrics.AltSeason.Index,
		"scenario", metrics.Scenario.Kind,
	)
}

func (s *Service) assembleFeed(ctx context.Context) (feedResult, error) {
	der, err := s.feed.FetchDerivatives(ctx)
	if err != nil {
		return feedResult{}, err
	}
	global, err := s.feed.FetchGlobal(ctx)
	if err != nil {
		return feedResult{}, err
	}
	tickers, err := s.feed.FetchTickers(ctx)
	if err != nil {
		return feedResult{}, err
	}

	feed := analytics.Feed{
		Funding:      der.Funding,
		OpenInterest: der.OpenInterest,
		LongShort:    der.LongShort,
		Global:       global,
		Tickers:      tickers,
		BTCPrice:     s.btcPrice(tickers),
	}
	return feedResult{feed: feed}, nil
}

// btcPrice prefers the live merged record, falling back to the ticker feed.
func (s *Service) btcPrice(tickers []model.TickerStat) float64 {
	if rec, ok := s.agg.Get("BTC"); ok && rec.HasPrice() {
		return rec.Price
	}
	for _, t := range tickers {
		if t.Symbol == "BTC" {
			return t.Price
		}
	}
	return 0
}

// fetchChunked splits keys into request-sized chunks and runs them through
// the batcher. Failed chunks are logged and skipped; surviving chunks are
// merged into one result map.
func (s *Service) fetchChunked(
	ctx context.Context,
	keys []string,
	fetch func(context.Context, []string) (map[string]model.PriceRecord, error),
) map[string]model.PriceRecord {
	chunks := chunkKeys(keys, maxKeysPerRequest)
	tasks := make([]batch.Task[map[string]model.PriceRecord], len(chunks))
	for i, chunk := range chunks {
		chunk := chunk
		tasks[i] = func(ctx context.Context) (map[string]model.PriceRecord, error) {
			return fetch(ctx, chunk)
		}
	}

	results := batch.Run(ctx, batch.Config{
		Concurrency: s.cfg.Concurrency,
		Pause:       s.cfg.BatchPause,
	}, tasks)

	merged := make(map[string]model.PriceRecord, len(keys))
	for i, res := range results {
		if res.Err != nil {
			s.logger.Warn("price fetch chunk failed", "chunk", i, "error", res.Err)
			continue
		}
		for key, rec := range res.Value {
			merged[key] = rec
		}
	}
	return merged
}

// applyPrices merges fetched records into the aggregator. Records for keys
// torn down while the fetch was in flight are discarded.
func (s *Service) applyPrices(records map[string]model.PriceRecord) {
	for key, rec := range records {
		if !s.watched(key) {
			continue
		}
		s.agg.Apply(key, rec)
	}
}

// persist saves the merged snapshot after a successful cycle.
func (s *Service) persist(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, s.agg.Snapshot()); err != nil {
		s.logger.Warn("snapshot save failed", "error", err)
	}
}

func chunkKeys(keys []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var chunks [][]string
	for len(keys) > size {
		chunks = append(chunks, keys[:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		chunks = append(chunks, keys)
	}
	return chunks
}
