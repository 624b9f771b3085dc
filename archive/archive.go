// Package archive captures accepted control datagrams into a Pebble store so
// a live session can be replayed offline against a fresh overlay. Capture is
// best-effort: it must never interfere with the reconciliation path.
package archive

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
)

const (
	keySize = 12 // 8-byte big-endian unix nanos + 4-byte sequence

	cacheSizeBytes    = int64(8 << 20)
	memTableSizeBytes = uint64(4 << 20)
	bloomBitsPerKey   = 10
)

// Capture is the datagram store. Record and Prune run on the loop goroutine;
// Pebble writes are unsynced, so the cost per datagram is a memtable insert.
type Capture struct {
	db    *pebble.DB
	cache *pebble.Cache
	seq   uint32

	maxAge   time.Duration
	maxBytes int64
}

// Open creates or reopens the capture store in dir. maxAge bounds replayable
// history; maxBytes caps on-disk size (checked at prune time).
func Open(dir string, maxAge time.Duration, maxBytes int64) (*Capture, error) {
	cache := pebble.NewCache(cacheSizeBytes)
	opts := &pebble.Options{
		Cache:        cache,
		MemTableSize: memTableSizeBytes,
		MaxOpenFiles: 128,
	}
	for i := range opts.Levels {
		opts.Levels[i].FilterPolicy = bloom.FilterPolicy(bloomBitsPerKey)
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		cache.Unref()
		return nil, fmt.Errorf("archive: open %s: %w", dir, err)
	}
	return &Capture{db: db, cache: cache, maxAge: maxAge, maxBytes: maxBytes}, nil
}

func (c *Capture) key(at time.Time) []byte {
	k := make([]byte, keySize)
	binary.BigEndian.PutUint64(k, uint64(at.UnixNano()))
	c.seq++
	binary.BigEndian.PutUint32(k[8:], c.seq)
	return k
}

// Record stores one datagram under its arrival time.
func (c *Capture) Record(at time.Time, payload []byte) error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.Set(c.key(at), payload, pebble.NoSync); err != nil {
		return fmt.Errorf("archive: set: %w", err)
	}
	return nil
}

// Replay walks the stored datagrams inside [from, to] in arrival order.
func (c *Capture) Replay(from, to time.Time, fn func(at time.Time, payload []byte) error) error {
	if c == nil || c.db == nil {
		return nil
	}
	lo := make([]byte, keySize)
	binary.BigEndian.PutUint64(lo, uint64(from.UnixNano()))
	hi := make([]byte, keySize)
	binary.BigEndian.PutUint64(hi, uint64(to.UnixNano()))
	for i := 8; i < keySize; i++ {
		hi[i] = 0xFF
	}

	iter, err := c.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: append(hi, 0)})
	if err != nil {
		return fmt.Errorf("archive: iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		k := iter.Key()
		if len(k) < 8 {
			continue
		}
		at := time.Unix(0, int64(binary.BigEndian.Uint64(k)))
		if err := fn(at, iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Count returns the number of stored datagrams.
func (c *Capture) Count() (int, error) {
	if c == nil || c.db == nil {
		return 0, nil
	}
	iter, err := c.db.NewIter(nil)
	if err != nil {
		return 0, fmt.Errorf("archive: iterator: %w", err)
	}
	defer iter.Close()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Prune deletes history past maxAge and, when the store exceeds maxBytes,
// compacts. Called at loop checkpoints, not per datagram.
func (c *Capture) Prune(now time.Time) error {
	if c == nil || c.db == nil || c.maxAge <= 0 {
		return nil
	}
	cutoff := make([]byte, keySize)
	binary.BigEndian.PutUint64(cutoff, uint64(now.Add(-c.maxAge).UnixNano()))
	lo := make([]byte, keySize)
	if err := c.db.DeleteRange(lo, cutoff, pebble.NoSync); err != nil {
		return fmt.Errorf("archive: delete range: %w", err)
	}
	if c.maxBytes > 0 {
		if m := c.db.Metrics(); int64(m.DiskSpaceUsage()) > c.maxBytes {
			if err := c.db.Compact(lo, []byte{0xFF}, false); err != nil {
				return fmt.Errorf("archive: compact: %w", err)
			}
		}
	}
	return nil
}

// Close flushes and closes the store.
func (c *Capture) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.cache.Unref()
	c.db = nil
	return err
}
