package storage

import (
	"context"
	"errors"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const megabyte = 1024 * 1024

// Cached is a read-through cache in front of a slower backend.
// Writes go to the backend first; the cache is only updated after they succeed.
type Cached struct {
	backend Persistence
	cache   *freecache.Cache
	// expireSeconds of 0 keeps entries until evicted
	expireSeconds int
}

func NewCached(backend Persistence, sizeMB, expireSeconds int) *Cached {
	if sizeMB <= 0 {
		sizeMB = 1
	}
	return &Cached{
		backend:       backend,
		cache:         freecache.NewCache(sizeMB * megabyte),
		expireSeconds: expireSeconds,
	}
}

func (c *Cached) Get(ctx context.Context, key string) ([]byte, error) {
	if value, err := c.cache.Get([]byte(key)); err == nil {
		log.Tracef("cache: hit for [%s]", key)
		return value, nil
	} else if !errors.Is(err, freecache.ErrNotFound) {
		log.Warnf("cache: get [%s]: %s", key, err)
	}

	value, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.put(key, value)
	return value, nil
}

func (c *Cached) Set(ctx context.Context, key string, value []byte) error {
	if err := c.backend.Set(ctx, key, value); err != nil {
		c.cache.Del([]byte(key))
		return err
	}
	c.put(key, value)
	return nil
}

func (c *Cached) Remove(ctx context.Context, key string) error {
	c.cache.Del([]byte(key))
	return c.backend.Remove(ctx, key)
}

// HitRate is exposed through the metrics manager.
func (c *Cached) HitRate() float64 {
	return c.cache.HitRate()
}

func (c *Cached) put(key string, value []byte) {
	if err := c.cache.Set([]byte(key), value, c.expireSeconds); err != nil {
		// entry larger than the cache allows, serve it from the backend from now on
		c.cache.Del([]byte(key))
		log.Debugf("cache: skip [%s] (%d bytes): %s", key, len(value), err)
	}
}
