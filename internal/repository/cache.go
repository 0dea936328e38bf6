// Package repository provides the on-disk memoization layer a caller
// uses when turning a real Composer repository's HTTP responses into
// pool.Pool entries. None of this package is reachable from
// internal/solver: the resolver core stays pure, and this cache exists
// purely to save the caller a redundant metadata fetch on the next
// run. Grounded on the teacher's own BoltDB source cache
// (internal/gps/source_cache_bolt.go), with bucket keys built via
// jmank88/nuts the same way that file builds its version/revision
// bucket keys.
package repository

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/jmank88/nuts"
	"github.com/pkg/errors"
)

var metadataBucket = []byte("package-metadata")

// Cache is a BoltDB-backed store of previously-fetched package
// metadata blobs (raw JSON, as returned by a repository's packages.json
// or p2/ endpoint), keyed by package name and an epoch timestamp so
// stale entries can be told apart from fresh ones without a second
// network round trip.
type Cache struct {
	db    *bolt.DB
	epoch int64
}

// Open creates or opens the cache database at path, creating its
// parent directory and top-level bucket if necessary.
func Open(path string, epoch int64) (*Cache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create repository cache directory %q", dir)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open repository cache %q", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metadataBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize repository cache bucket")
	}

	return &Cache{db: db, epoch: epoch}, nil
}

// Close releases the cache's file handle.
func (c *Cache) Close() error {
	return errors.Wrap(c.db.Close(), "error closing repository cache")
}

func packageKey(name string, fetchedAt int64) []byte {
	key := make(nuts.Key, 8+len(name))
	key[:8].Put(uint64(fetchedAt))
	copy(key[8:], name)
	return []byte(key)
}

// Put stores raw metadata for name, timestamped at fetchedAt.
func (c *Cache) Put(name string, fetchedAt int64, raw []byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(metadataBucket)
		return b.Put(packageKey(name, fetchedAt), raw)
	})
}

// Get returns the freshest cached metadata for name that is no older
// than the cache's epoch, or ok=false if nothing qualifies.
func (c *Cache) Get(name string) (raw []byte, ok bool, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(metadataBucket)
		cur := b.Cursor()
		suffix := []byte(name)

		for k, v := cur.Last(); k != nil; k, v = cur.Prev() {
			if len(k) < 8 || string(k[8:]) != string(suffix) {
				continue
			}
			fetchedAt := int64(binary.BigEndian.Uint64(k[:8]))
			if fetchedAt < c.epoch {
				return nil
			}
			raw = append([]byte(nil), v...)
			ok = true
			return nil
		}
		return nil
	})
	return raw, ok, errors.Wrapf(err, "failed to read repository cache entry for %q", name)
}
