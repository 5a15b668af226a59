package respcache

import (
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var entriesBucket = []byte("responses")

type BoltConfig struct {
	Path string `config:"path" validate:"required"`
	// OpenTimeout is how long to wait for the file lock.
	OpenTimeout time.Duration `config:"open-timeout" validate:"min-time=0s"`
	// Fsync on every Put. Otherwise only on Save.
	Fsync bool `config:"fsync"`
}

func DefaultBoltConfig() BoltConfig {
	return BoltConfig{
		OpenTimeout: time.Second,
	}
}

// Bolt is a Store in a bbolt file.
type Bolt struct {
	db     *bolt.DB
	closed atomic.Bool
}

func NewBolt(conf BoltConfig) (*Bolt, error) {
	db, err := bolt.Open(conf.Path, 0600, &bolt.Options{Timeout: conf.OpenTimeout, NoSync: !conf.Fsync})
	if err != nil {
		return nil, errors.Wrapf(err, "response cache %q open", conf.Path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "response cache bucket create")
	}
	zap.L().Debug("Response cache opened", zap.String("path", conf.Path))
	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(key string) (entry Entry, ok bool, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(entriesBucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		ok = true
		entry, err = decodeEntry(data)
		return err
	})
	if err == bolt.ErrDatabaseNotOpen {
		err = ErrClosed
	}
	return
}

func (b *Bolt) Put(key string, doc []byte, lastVisited time.Time) error {
	data, err := encodeEntry(Entry{Doc: doc, LastVisited: lastVisited})
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).Put([]byte(key), data)
	})
	if err == bolt.ErrDatabaseNotOpen {
		return ErrClosed
	}
	return err
}

// Keys are returned in byte order, which bolt keeps.
func (b *Bolt) Keys() ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err == bolt.ErrDatabaseNotOpen {
		return nil, ErrClosed
	}
	return keys, err
}

func (b *Bolt) Save() error {
	if b.closed.Load() {
		return ErrClosed
	}
	return errors.Wrap(b.db.Sync(), "response cache sync")
}

func (b *Bolt) Close() error {
	if !b.closed.CAS(false, true) {
		return nil
	}
	if err := b.db.Sync(); err != nil {
		zap.L().Warn("Response cache sync failed", zap.Error(err))
	}
	return b.db.Close()
}
