package cache

import "time"

// LayeredCache fronts a DiskCache with a MemoryCache. Writes go to disk first
// so a crash never leaves an entry only in memory; hits on disk are promoted.
type LayeredCache struct {
	memory    *MemoryCache
	disk      *DiskCache
	memoryTTL time.Duration
}

// NewLayeredCache keeps entries in memory for at most memoryTTL and on disk
// for diskTTL (or the ttl passed to Set).
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory:    NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:      NewDiskCache(diskDir, diskTTL),
		memoryTTL: memoryTTL,
	}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if v, ok := c.memory.Get(key); ok {
		return v, true
	}
	v, ok := c.disk.Get(key)
	if !ok {
		return nil, false
	}
	_ = c.memory.Set(key, v, 0)
	return v, true
}

func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.disk.Set(key, value, ttl); err != nil {
		return err
	}
	memTTL := ttl
	if memTTL == 0 || (c.memoryTTL > 0 && memTTL > c.memoryTTL) {
		memTTL = c.memoryTTL
	}
	return c.memory.Set(key, value, memTTL)
}

func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}
