package nvs

import (
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/jellydator/ttlcache/v3"
)

type Config struct {
	Logger         *slog.Logger
	BadgerLogLevel slog.Level
	Directory      string
	CacheTTL       time.Duration
}

type data struct {
	store *badger.DB
	cache *ttlcache.Cache[uint32, []byte]
}

// Store is the non-volatile key-value surface the file layer runs on.
// Entries are addressed by fixed-width numeric identifiers and are always
// written in full; there are no partial updates.
type Store interface {
	// Read copies the entry for id into dst (clamped to len(dst)) and
	// returns the stored length. A nil dst is a pure length probe.
	Read(id uint32, dst []byte) (int, error)

	// Len returns the stored length for id without transferring content.
	Len(id uint32) (int, error)

	// Write replaces the entry for id with value in full.
	Write(id uint32, value []byte) error

	// Delete removes the entry for id. Deleting an absent id is not an
	// error.
	Delete(id uint32) error

	Close() error
}
