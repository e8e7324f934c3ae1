package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mavismavis1124-blip/marketsync/internal/model"
)

// DefaultMaxAge is the hydration window: persisted snapshots at least
// this old are ignored at cold start.
const DefaultMaxAge = 5 * time.Minute

// DefaultKey is the redis key holding the snapshot blob.
const DefaultKey = "marketsync:snapshot"

// ErrNotFound is returned by a Store when no blob is persisted.
var ErrNotFound = errors.New("snapshot blob not found")

// Store is the persistence backend for the snapshot blob. The redis
// implementation is the production one; tests use an in-memory fake.
type Store interface {
	Get(ctx context.Context) ([]byte, error)
	Set(ctx context.Context, data []byte, ttl time.Duration) error
}

// RedisStore persists the blob under a single redis key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store on the given client. An empty key uses
// DefaultKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Get(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *RedisStore) Set(ctx context.Context, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.key, data, ttl).Err()
}

// blob is the persisted wire format: the full price map plus an epoch-ms
// write timestamp.
type blob struct {
	Data      map[string]model.PriceRecord `json:"data"`
	Timestamp int64                        `json:"timestamp"`
}

// SnapshotCache is the TTL-bound persisted last-known-good cache.
type SnapshotCache struct {
	store  Store
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a SnapshotCache.
type Option func(*SnapshotCache)

// WithMaxAge overrides the hydration window.
func WithMaxAge(d time.Duration) Option {
	return func(c *SnapshotCache) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithClock injects the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *SnapshotCache) {
		c.now = now
	}
}

// New creates a snapshot cache over the given store.
func New(store Store, logger *slog.Logger, opts ...Option) *SnapshotCache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &SnapshotCache{
		store:  store,
		maxAge: DefaultMaxAge,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the persisted snapshot. A missing, unreadable, or stale blob
// yields an empty snapshot and ok=false: hydration failures are never
// fatal, the core simply waits for its first live fetch.
func (c *SnapshotCache) Load(ctx context.Context) (model.Snapshot, bool) {
	data, err := c.store.Get(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("snapshot load failed, starting cold", "error", err)
		}
		return model.Snapshot{Records: map[string]model.PriceRecord{}}, false
	}

	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		c.logger.Warn("corrupt snapshot blob, starting cold", "error", err)
		return model.Snapshot{Records: map[string]model.PriceRecord{}}, false
	}

	writtenAt := time.UnixMilli(b.Timestamp)
	age := c.now().Sub(writtenAt)
	if age >= c.maxAge {
		c.logger.Info("persisted snapshot too old, starting cold",
			"age", age,
			"max_age", c.maxAge,
		)
		return model.Snapshot{Records: map[string]model.PriceRecord{}}, false
	}

	if b.Data == nil {
		b.Data = map[string]model.PriceRecord{}
	}
	return model.Snapshot{Records: b.Data, LastUpdated: writtenAt}, true
}

// Save overwrites the persisted blob with the full snapshot. The write is
// always a full replace, never a partial merge.
func (c *SnapshotCache) Save(ctx context.Context, snap model.Snapshot) error {
	b := blob{
		Data:      snap.Records,
		Timestamp: c.now().UnixMilli(),
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	// TTL matches the hydration window; the age check on load still
	// applies in case the backend ignores expiry.
	if err := c.store.Set(ctx, data, c.maxAge); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}

	return nil
}
