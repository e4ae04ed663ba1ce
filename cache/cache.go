package cache

import (
	"log"
	"time"

	"github.com/PuerkitoBio/purell"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"car_tracker/config"
	"car_tracker/models"
)

const keyFlags = purell.FlagsSafe | purell.FlagsUsuallySafeGreedy | purell.FlagRemoveFragment | purell.FlagSortQuery

// Cache holds recent search answers keyed by normalized request URL. A zero
// TTL disables it.
type Cache struct {
	lru *expirable.LRU[string, models.TrackResult]
	ttl time.Duration
}

func New(cfg config.CacheConfig) *Cache {
	size := cfg.Size
	if size <= 0 {
		size = 512
	}
	c := &Cache{ttl: cfg.TTL}
	if cfg.TTL > 0 {
		c.lru = expirable.NewLRU[string, models.TrackResult](size, nil, cfg.TTL)
	}
	return c
}

// Key normalizes a request URL so that equivalent URLs share an entry.
func Key(rawURL string) string {
	key, err := purell.NormalizeURLString(rawURL, keyFlags)
	if err != nil {
		log.Printf("[cache] Could not normalize %q: %v", rawURL, err)
		return rawURL
	}
	return key
}

func (c *Cache) Get(rawURL string) (models.TrackResult, bool) {
	if c == nil || c.lru == nil {
		return models.TrackResult{}, false
	}
	res, ok := c.lru.Get(Key(rawURL))
	if !ok {
		return models.TrackResult{}, false
	}
	res.Items = append([]models.NormalizedListing(nil), res.Items...)
	res.Cached = true
	return res, true
}

// Set stores a result. Empty results are not cached so the next call retries
// upstream.
func (c *Cache) Set(rawURL string, res models.TrackResult) bool {
	if c == nil || c.lru == nil || len(res.Items) == 0 {
		return false
	}
	res.Items = append([]models.NormalizedListing(nil), res.Items...)
	res.Cached = false
	c.lru.Add(Key(rawURL), res)
	return true
}

func (c *Cache) Purge() {
	if c != nil && c.lru != nil {
		c.lru.Purge()
	}
}

func (c *Cache) Len() int {
	if c == nil || c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
