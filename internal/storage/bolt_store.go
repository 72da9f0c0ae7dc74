package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	queryBucket      = "queries"
	expiryValueBytes = 8
)

// boltCache implements a Cache backed by BoltDB. Each value is prefixed
// with its big-endian unix expiry.
type boltCache struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	defaultTTL      time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Cache.
func openBolt(path string, opts Options) (Cache, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(queryBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	c := &boltCache{
		db:              db,
		defaultTTL:      opts.DefaultTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	c.lastCleanup.Store(time.Now().Unix())
	return c, nil
}

// Close closes the BoltDB file.
func (b *boltCache) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Get returns the stored value for key if it has not expired. Expired
// entries are deleted on read.
func (b *boltCache) Get(key string) ([]byte, bool, error) {
	if b == nil || b.db == nil {
		return nil, false, nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return nil, false, err
	}

	var out []byte
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(queryBucket))
		if bucket == nil {
			return fmt.Errorf("query bucket missing")
		}

		k := []byte(key)
		value := bucket.Get(k)
		if value == nil {
			return nil
		}

		expiry, ok := decodeExpiry(value)
		if !ok || !expiry.After(now) {
			return bucket.Delete(k)
		}

		out = append([]byte(nil), value[expiryValueBytes:]...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// Put stores value under key until ttl elapses (the default TTL when ttl <= 0).
func (b *boltCache) Put(key string, value []byte, ttl time.Duration) error {
	if b == nil || b.db == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = b.defaultTTL
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(queryBucket))
		if bucket == nil {
			return fmt.Errorf("query bucket missing")
		}
		buf := make([]byte, expiryValueBytes+len(value))
		binary.BigEndian.PutUint64(buf, uint64(now.Add(ttl).UnixNano()))
		copy(buf[expiryValueBytes:], value)
		return bucket.Put([]byte(key), buf)
	})
}

// maybeCleanupExpired removes expired entries on a fixed cadence to avoid unbounded growth.
func (b *boltCache) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(queryBucket))
		if bucket == nil {
			return fmt.Errorf("query bucket missing")
		}

		var expired [][]byte
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, ok := decodeExpiry(v)
			if !ok || !expiry.After(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
		}
		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// decodeExpiry reads the expiry prefix of a stored value.
func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) < expiryValueBytes {
		return time.Time{}, false
	}
	nanos := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if nanos <= 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}
