// Package cache is a namespaced TTL blob cache over the local store. All
// namespaces share one purge ledger that records when every entry was
// written; sweeps evict entries older than the retention window.
package cache

import (
	"encoding/json"
	"io/fs"
	"path"
	"time"

	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/logger"
)

// Cache is the view of a single namespace. Create it with Manager.Open.
type Cache struct {
	manager   *Manager
	namespace string
}

// Namespace returns the namespace of c.
func (c *Cache) Namespace() string {
	return c.namespace
}

// Write stores value under key. Strings and byte slices are stored verbatim,
// anything else is JSON encoded. The ledger records the write time.
func (c *Cache) Write(key string, value any) error {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, "failed to encode cache value for %s", key)
		}
		data = encoded
	}
	return c.put(key, data)
}

// WriteArtifact stores a binary payload under key.
func (c *Cache) WriteArtifact(key string, data []byte) error {
	return c.put(key, data)
}

func (c *Cache) put(key string, data []byte) error {
	name, err := SanitizeKey(key)
	if err != nil {
		return err
	}
	blob := path.Join(c.namespace, name)

	return c.manager.update(func(ledger Ledger) error {
		if err := c.manager.store.MkdirAll(c.namespace); err != nil {
			return errors.Wrapf(err, "failed to create cache namespace %s", c.namespace)
		}
		if err := c.manager.store.WriteFileAtomic(blob, data); err != nil {
			return errors.Wrapf(err, "failed to write cache entry %s", blob)
		}
		ledger.Set(c.namespace, name, c.manager.clock.Now())
		return nil
	})
}

// Read returns the value stored under key, or nil. With ttl > 0 an entry
// older than ttl is deleted and nil is returned. JSON payloads are decoded;
// anything else comes back as the raw string. Failures of any kind yield nil.
func (c *Cache) Read(key string, ttl time.Duration) any {
	data := c.get(key, ttl)
	if data == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err == nil {
		return v
	}
	return string(data)
}

// ReadArtifact returns the binary payload stored under key, or nil.
func (c *Cache) ReadArtifact(key string) []byte {
	return c.get(key, 0)
}

func (c *Cache) get(key string, ttl time.Duration) []byte {
	name, err := SanitizeKey(key)
	if err != nil {
		logger.Debug("Cache read rejected", logger.Fields{"namespace": c.namespace, "error": err})
		return nil
	}
	blob := path.Join(c.namespace, name)

	if ttl > 0 {
		written, ok := c.writtenAt(name, blob)
		if !ok {
			return nil
		}
		if age := c.manager.clock.Since(written); age > ttl {
			if err := c.Remove(key); err != nil {
				logger.Debug("Failed to remove expired cache entry", logger.Fields{"entry": blob, "error": err})
			}
			logger.Debug("Cache entry expired", logger.Fields{"entry": blob, "age": age.String()})
			return nil
		}
	}

	data, err := c.manager.store.ReadFile(blob)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Debug("Cache read failed", logger.Fields{"entry": blob, "error": err})
		}
		return nil
	}
	return data
}

// writtenAt returns the age reference of an entry: the store creation time,
// or the ledger write time with ExpiryFromLedger. Without a ledger record the
// store time is used.
func (c *Cache) writtenAt(name, blob string) (time.Time, bool) {
	if c.manager.expiry == ExpiryFromLedger {
		if written, ok := c.manager.Ledger().WrittenAt(c.namespace, name); ok {
			return written, true
		}
	}
	created, err := c.manager.store.CreatedAt(blob)
	if err != nil {
		return time.Time{}, false
	}
	return created, true
}

// Remove deletes the entry and its ledger record.
func (c *Cache) Remove(key string) error {
	name, err := SanitizeKey(key)
	if err != nil {
		return err
	}
	blob := path.Join(c.namespace, name)

	return c.manager.update(func(ledger Ledger) error {
		if err := c.manager.store.Remove(blob); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "failed to remove cache entry %s", blob)
		}
		ledger.Delete(c.namespace, name)
		return nil
	})
}
