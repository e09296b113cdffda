package raster

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/zeebo/xxh3"
)

// Cache holds rendered bitmaps keyed by a hash of the request.
type Cache struct {
	c *cache.Cache
}

// NewCache returns a cache whose entries expire after ttl; zero keeps them
// until Flush.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return &Cache{c: cache.New(cache.NoExpiration, 0)}
	}
	return &Cache{c: cache.New(ttl, 2*ttl)}
}

func hashKey(s string) string { return strconv.FormatUint(xxh3.HashString(s), 16) }

func imageKey(data []byte, maxWidth float64) string {
	return "image:" + strconv.FormatUint(xxh3.Hash(data), 16) + ":" + strconv.FormatFloat(maxWidth, 'g', -1, 64)
}

func (c *Cache) Get(key string) (*Bitmap, bool) {
	x, found := c.c.Get(hashKey(key))
	if !found {
		return nil, false
	}
	return x.(*Bitmap), true
}

func (c *Cache) Set(key string, bmp *Bitmap) {
	c.c.Set(hashKey(key), bmp, cache.DefaultExpiration)
}

// Len returns the number of cached bitmaps, expired ones included until
// the next cleanup.
func (c *Cache) Len() int { return c.c.ItemCount() }

// Flush drops every bitmap, as done before printing or downloading.
func (c *Cache) Flush() { c.c.Flush() }
