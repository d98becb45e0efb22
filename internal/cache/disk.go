package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskCache persists entries as one file per key, grouped into a directory per
// key namespace. Each file is an 8-byte big-endian expiry (unix nanoseconds)
// followed by the raw value.
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a disk cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{dir: dir, ttl: ttl, now: time.Now}
}

const expiryHeaderLen = 8

func (c *DiskCache) Get(key string) ([]byte, bool) {
	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil || len(data) < expiryHeaderLen {
		return nil, false
	}

	expires := time.Unix(0, int64(binary.BigEndian.Uint64(data[:expiryHeaderLen])))
	if !c.now().Before(expires) {
		_ = os.Remove(path)
		return nil, false
	}
	return data[expiryHeaderLen:], true
}

// Set writes the entry through a temp file and rename, so readers never see a
// partial vector.
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	buf := make([]byte, expiryHeaderLen+len(value))
	binary.BigEndian.PutUint64(buf, uint64(c.now().Add(ttl).UnixNano()))
	copy(buf[expiryHeaderLen:], value)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	if _, err := tmp.Write(buf); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Delete removes the entry. A missing entry is not an error.
func (c *DiskCache) Delete(key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path maps "precedent:v1:<namespace>:<hash>" to <dir>/<namespace>/<hash>.cache.
// Other keys land in <dir>/misc with colons replaced, since some filesystems
// reject them.
func (c *DiskCache) path(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) == 4 && parts[0] == "precedent" {
		return filepath.Join(c.dir, parts[2], parts[3]+".cache")
	}
	return filepath.Join(c.dir, "misc", strings.ReplaceAll(key, ":", "_")+".cache")
}
