package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/store"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/zippdf/zippdf/internal/config"
)

// PendingCachePrefix is the key prefix of pending conversion requests.
const PendingCachePrefix = "pending-"

// PendingFile is a file posted to the bot that waits for the user to pick an action.
type PendingFile struct {
	ID              string    `json:"id"`
	ChatID          int64     `json:"chat_id"`
	MessageID       int       `json:"message_id"`
	PromptMessageID int       `json:"prompt_message_id,omitempty"`
	UserID          int64     `json:"user_id"`
	Kind            string    `json:"kind"`
	FileID          string    `json:"file_id"`
	FileName        string    `json:"file_name"`
	FileSize        int64     `json:"file_size"`
	CreatedAt       time.Time `json:"created_at"`
}

// PendingCache stores PendingFiles by correlation id until they expire.
type PendingCache struct {
	cache  *PrefixedCache[PendingFile]
	ttl    time.Duration
	memory *gocache.Cache
	redis  *redis.Client
}

// NewPendingCache creates the pending cache for the configured backend.
func NewPendingCache(cfg *config.CacheConfig) (*PendingCache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing cache config")
	}
	ttl := cfg.PendingTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	p := &PendingCache{ttl: ttl}
	switch cfg.Type {
	case config.CacheTypeRedis:
		c, client := newRedisCache(cfg)
		p.redis = client
		p.cache = NewPrefixedCache[PendingFile](c, cfg.Type, PendingCachePrefix)
	case config.CacheTypeMemory, "":
		// expired items are purged by the scheduler, not by a janitor goroutine
		p.memory = gocache.New(ttl, gocache.NoExpiration)
		p.cache = NewPrefixedCache[PendingFile](newMemoryCache(p.memory), config.CacheTypeMemory, PendingCachePrefix)
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
	return p, nil
}

// Put stores f under f.ID.
func (p *PendingCache) Put(ctx context.Context, f PendingFile) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	return p.cache.Set(ctx, f.ID, f, store.WithExpiration(p.ttl))
}

// Get returns the pending file with the given id, or ErrNotFound.
func (p *PendingCache) Get(ctx context.Context, id string) (*PendingFile, error) {
	f, err := p.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Delete forgets the pending file. Unknown ids are ignored.
func (p *PendingCache) Delete(ctx context.Context, id string) error {
	return p.cache.Delete(ctx, id)
}

// TTL returns how long pending files are kept.
func (p *PendingCache) TTL() time.Duration {
	return p.ttl
}

// Type returns the backend type.
func (p *PendingCache) Type() config.CacheType {
	return p.cache.GetType()
}

// GetStats returns the cache statistics.
func (p *PendingCache) GetStats() *Stats {
	return &Stats{
		Stats:     p.cache.GetStats(),
		CacheName: "pending",
	}
}

// DeleteExpired purges expired entries from the memory backend and returns how many
// entries are left. Redis expires keys on its own.
func (p *PendingCache) DeleteExpired(_ context.Context) int {
	if p.memory == nil {
		return -1
	}
	p.memory.DeleteExpired()
	n := p.memory.ItemCount()
	log.Debug("purged expired pending requests", "remaining", n)
	return n
}

// Close releases the backend connection.
func (p *PendingCache) Close() error {
	if p.redis != nil {
		return p.redis.Close()
	}
	return nil
}
