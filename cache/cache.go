// Package cache keeps finished pivot tables in a badger store, keyed by the
// query, the counting mode and the identity of the ballot files scanned.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	"github.com/vegasq/prefcat/contest"
	"github.com/vegasq/prefcat/pivot"
)

var ErrCorrupt = errors.New("cache entry is corrupt")

// entryPrefix keeps cache entries apart from anything else in the store
var entryPrefix = []byte("table/")

// Entry is one cached table
type Entry struct {
	ID        uuid.UUID    `json:"id"`
	Key       string       `json:"key"`
	CreatedAt time.Time    `json:"created_at"`
	Mode      string       `json:"mode"`
	Files     []string     `json:"files"`
	Query     pivot.Query  `json:"query"`
	Table     *pivot.Table `json:"table"`
}

// Cache is a persistent table store
type Cache struct {
	db *badger.DB
}

// Open opens or creates a cache in dir. An empty dir keeps the cache in
// memory for the life of the process.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = logger{}
	opts.MetricsEnabled = false
	if dir == "" {
		opts.InMemory = true
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open cache %q", dir)
	}
	return &Cache{db: db}, nil
}

// Close flushes and closes the store
func (c *Cache) Close() error {
	return errors.Wrap(c.db.Close(), "close cache")
}

// Key derives the cache key of a scan. Entity numbers follow catalogue
// order, so the whole catalogue is part of the key. A file's identity is its
// path, size and modification time, so rewriting a ballot file invalidates
// its tables.
func Key(q *pivot.Query, cat *contest.Catalogue, mode contest.Mode, files []string) (string, error) {
	h := sha256.New()

	body, err := json.Marshal(q)
	if err != nil {
		return "", errors.Wrap(err, "encode query")
	}
	h.Write(body)

	catalogue, err := json.Marshal(cat)
	if err != nil {
		return "", errors.Wrap(err, "encode catalogue")
	}
	h.Write([]byte{0})
	h.Write(catalogue)
	fmt.Fprintf(h, "\x00%s", mode)

	sorted := append([]string(nil), files...)
	sort.Strings(sorted)
	for _, f := range sorted {
		info, err := os.Stat(f)
		if err != nil {
			return "", errors.Wrapf(err, "stat %s", f)
		}
		fmt.Fprintf(h, "\x00%s\x00%d\x00%d", f, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func entryKey(key string) []byte {
	return append(append([]byte(nil), entryPrefix...), key...)
}

// Get returns the entry stored under key, if any
func (c *Cache) Get(key string) (*Entry, bool, error) {
	var entry *Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			entry, err = decode(val)
			return err
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "get %s", key)
	}
	klog.V(2).Infof("cache: hit %s (entry %s from %s)", key, entry.ID, entry.CreatedAt.Format(time.RFC3339))
	return entry, true, nil
}

// Put stores a table under key, replacing any earlier entry
func (c *Cache) Put(key string, q *pivot.Query, mode contest.Mode, files []string, table *pivot.Table) (*Entry, error) {
	entry := &Entry{
		ID:        uuid.New(),
		Key:       key,
		CreatedAt: time.Now().UTC(),
		Mode:      mode.String(),
		Files:     files,
		Query:     *q,
		Table:     table,
	}
	val, err := json.Marshal(entry)
	if err != nil {
		return nil, errors.Wrap(err, "encode entry")
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(key), val)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "put %s", key)
	}
	klog.V(2).Infof("cache: stored %s as entry %s", key, entry.ID)
	return entry, nil
}

// List returns every entry, oldest first
func (c *Cache) List() ([]*Entry, error) {
	var entries []*Entry
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   100,
			Prefix:         entryPrefix,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				entry, err := decode(val)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list cache")
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// Delete removes the entry stored under key
func (c *Cache) Delete(key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(entryKey(key))
	})
	return errors.Wrapf(err, "delete %s", key)
}

// Clear removes every entry
func (c *Cache) Clear() error {
	return errors.Wrap(c.db.DropPrefix(entryPrefix), "clear cache")
}

func decode(val []byte) (*Entry, error) {
	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	if entry.Table == nil {
		return nil, errors.Wrap(ErrCorrupt, "no table")
	}
	return &entry, nil
}

// logger routes badger's own logging through klog
type logger struct{}

func (logger) Errorf(format string, args ...interface{})   { klog.Errorf("badger: "+format, args...) }
func (logger) Warningf(format string, args ...interface{}) { klog.Warningf("badger: "+format, args...) }
func (logger) Infof(format string, args ...interface{})    { klog.V(3).Infof("badger: "+format, args...) }
func (logger) Debugf(format string, args ...interface{})   { klog.V(4).Infof("badger: "+format, args...) }
