// Package respcache persists backend response documents between requests
// and restarts. Entries are keyed by a caller defined string and carry the
// time they were last refreshed, so callers can revalidate them against the
// dataset modification time.
package respcache

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Entry is a cached document.
type Entry struct {
	Doc         []byte    `json:"doc"`
	LastVisited time.Time `json:"last_visited"`
}

// Store is implemented by every cache backend. Implementations are safe for
// concurrent use. The core never evicts entries, a store may bound itself.
type Store interface {
	// Get returns false if key is not cached.
	Get(key string) (Entry, bool, error)
	// Put creates or overwrites key.
	Put(key string, doc []byte, lastVisited time.Time) error
	// Keys returns cached keys sorted.
	Keys() ([]string, error)
	// Save flushes state to durable storage.
	Save() error
	Close() error
}

var ErrClosed = errors.New("response cache is closed")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func encodeEntry(e Entry) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	err := json.Unmarshal(data, &e)
	return e, errors.Wrap(err, "cache entry decode")
}
