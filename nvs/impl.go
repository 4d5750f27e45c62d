package nvs

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
)

var DefaultCacheTTL = 1 * time.Minute

// entryKeyPrefix namespaces file entries within the badger key space so a
// future schema can add unrelated key families without colliding.
const entryKeyPrefix = byte('f')

type store struct {
	logger *slog.Logger
	db     *data
}

var _ Store = &store{}

func entryKey(id uint32) []byte {
	key := make([]byte, 5)
	key[0] = entryKeyPrefix
	binary.BigEndian.PutUint32(key[1:], id)
	return key
}

func New(config Config) (Store, error) {
	if err := os.MkdirAll(config.Directory, 0755); err != nil {
		return nil, &ErrInternal{Err: errors.Wrap(err, "create store directory")}
	}

	badgerLogLevel := badger.INFO
	if config.BadgerLogLevel == slog.LevelDebug {
		badgerLogLevel = badger.DEBUG
	} else if config.BadgerLogLevel == slog.LevelInfo {
		badgerLogLevel = badger.INFO
	} else if config.BadgerLogLevel == slog.LevelWarn {
		badgerLogLevel = badger.WARNING
	} else if config.BadgerLogLevel == slog.LevelError {
		badgerLogLevel = badger.ERROR
	} else {
		config.Logger.Warn("Unknown badger log level, defaulting to info", "level", config.BadgerLogLevel)
	}

	dbOpts := badger.DefaultOptions(config.Directory).
		WithLogger(newLogger(config.Logger.WithGroup("store"))).
		WithLoggingLevel(badgerLogLevel).
		WithMemTableSize(8 << 20)

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, &ErrInternal{Err: errors.Wrap(err, "mount store")}
	}

	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultCacheTTL
	}

	cache := ttlcache.New[uint32, []byte](
		ttlcache.WithTTL[uint32, []byte](config.CacheTTL),

		// Entries must fall out of the cache on schedule regardless of
		// read traffic, otherwise a hot identifier would never revalidate
		// against flash.
		ttlcache.WithDisableTouchOnHit[uint32, []byte](),
	)
	go cache.Start()

	s := &store{
		logger: config.Logger.WithGroup("nvs"),
		db: &data{
			store: db,
			cache: cache,
		},
	}

	return s, nil
}

func (s *store) Close() error {
	var firstErr error

	if s.db.cache != nil {
		s.db.cache.Stop()
		s.logger.Info("ttl cache stopped")
	}

	if err := s.db.store.Close(); err != nil {
		s.logger.Error("error closing store db", "error", err)
		firstErr = &ErrInternal{Err: err}
	}

	return firstErr
}

// load fetches the full entry for id, consulting the read cache first.
func (s *store) load(id uint32) ([]byte, error) {
	if item := s.db.cache.Get(id); item != nil && !item.IsExpired() {
		return item.Value(), nil
	}

	var value []byte
	err := s.db.store.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return &ErrIDNotFound{ID: id}
			}
			return &ErrInternal{Err: err}
		}
		value, err = item.ValueCopy(nil)
		if err != nil {
			return &ErrInternal{Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.db.cache.Set(id, value, ttlcache.DefaultTTL)
	return value, nil
}

func (s *store) Read(id uint32, dst []byte) (int, error) {
	value, err := s.load(id)
	if err != nil {
		return 0, err
	}
	if dst != nil {
		copy(dst, value)
	}
	return len(value), nil
}

func (s *store) Len(id uint32) (int, error) {
	return s.Read(id, nil)
}

func (s *store) Write(id uint32, value []byte) error {
	err := s.db.store.Update(func(txn *badger.Txn) error {
		if err := txn.Set(entryKey(id), value); err != nil {
			return &ErrInternal{Err: errors.Wrapf(err, "write entry 0x%04x", id)}
		}
		return nil
	})
	if err != nil {
		return err
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.db.cache.Set(id, stored, ttlcache.DefaultTTL)
	return nil
}

func (s *store) Delete(id uint32) error {
	err := s.db.store.Update(func(txn *badger.Txn) error {
		// badger treats deletion of a missing key as success, which is
		// exactly the idempotency the file layer relies on.
		if err := txn.Delete(entryKey(id)); err != nil {
			return &ErrInternal{Err: errors.Wrapf(err, "delete entry 0x%04x", id)}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.db.cache.Delete(id)
	return nil
}

// badgerLogger adapts badger's printf-style logger onto slog.
type badgerLogger struct {
	l *slog.Logger
}

func newLogger(l *slog.Logger) *badgerLogger {
	return &badgerLogger{l: l}
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Info(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(fmt.Sprintf(format, args...))
}
