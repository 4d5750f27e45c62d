// Package fs provides a stdio-like file abstraction for SIM card data on
// top of a key-value flash store. Hierarchical path strings are mapped
// onto a bounded, flat identifier space; each open file is staged in a
// fixed-capacity in-memory buffer and flushed back to the store in full
// on close.
package fs

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/vjardin/zephyr-softsim/nvs"
)

const (
	DefaultIDBase        = 0x1000
	DefaultIDSpan        = 0x0FFF
	DefaultMaxPathLength = 64
	DefaultMaxOpenFiles  = 4
	DefaultMaxFileSize   = 1536
	DefaultEraseByte     = 0xFF
	DefaultStorageRoot   = "/softsim/"
)

type Config struct {
	Logger         *slog.Logger
	BadgerLogLevel slog.Level

	// Store is the backing key-value store. When nil, a badger-backed
	// store is mounted lazily from Directory on first use.
	Store     nvs.Store
	Directory string
	CacheTTL  time.Duration

	// Reserved identifier range [IDBase, IDBase+IDSpan).
	IDBase uint32
	IDSpan uint32

	MaxPathLength int
	MaxOpenFiles  int
	MaxFileSize   int

	// EraseByte fills fresh buffers, mirroring the flash erase state.
	// ZeroFill forces 0x00 instead, for backends without flash semantics.
	EraseByte byte
	ZeroFill  bool

	StorageRoot string
}

// FS owns the store handle, the mount state and the file handle pool.
// Independent instances are fully isolated from one another.
type FS struct {
	mu     sync.Mutex
	cfg    Config
	logger *slog.Logger

	store     nvs.Store
	mounted   bool
	ownsStore bool

	eraseByte   byte
	storageRoot string

	slots []slot
}

func New(cfg Config) (*FS, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IDBase == 0 {
		cfg.IDBase = DefaultIDBase
	}
	if cfg.IDSpan == 0 {
		cfg.IDSpan = DefaultIDSpan
	}
	if cfg.MaxPathLength == 0 {
		cfg.MaxPathLength = DefaultMaxPathLength
	}
	if cfg.MaxOpenFiles == 0 {
		cfg.MaxOpenFiles = DefaultMaxOpenFiles
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.StorageRoot == "" {
		cfg.StorageRoot = DefaultStorageRoot
	}
	if cfg.Store == nil && cfg.Directory == "" {
		return nil, &ErrInvalidArgument{Reason: "either Store or Directory must be set"}
	}
	if len(cfg.StorageRoot) >= cfg.MaxPathLength {
		return nil, &ErrInvalidPath{Path: cfg.StorageRoot, Reason: "storage root too long"}
	}

	eraseByte := cfg.EraseByte
	if cfg.ZeroFill {
		eraseByte = 0x00
	} else if eraseByte == 0 {
		eraseByte = DefaultEraseByte
	}

	f := &FS{
		cfg:         cfg,
		logger:      cfg.Logger.WithGroup("fs"),
		eraseByte:   eraseByte,
		storageRoot: cfg.StorageRoot,
		slots:       make([]slot, cfg.MaxOpenFiles),
	}

	if cfg.Store != nil {
		f.store = cfg.Store
		f.mounted = true
	}

	return f, nil
}

// ensureMounted initializes the backing store on first use. The result is
// cached: subsequent calls are no-ops. Callers must hold f.mu.
func (f *FS) ensureMounted() error {
	if f.mounted {
		return nil
	}

	f.logger.Info("mounting softsim storage", "directory", f.cfg.Directory)

	store, err := nvs.New(nvs.Config{
		Logger:         f.cfg.Logger,
		BadgerLogLevel: f.cfg.BadgerLogLevel,
		Directory:      f.cfg.Directory,
		CacheTTL:       f.cfg.CacheTTL,
	})
	if err != nil {
		f.logger.Error("storage mount failed", "error", err)
		return err
	}

	f.store = store
	f.mounted = true
	f.ownsStore = true

	f.logger.Info("softsim storage mounted")
	return nil
}

// Mount forces store initialization up front instead of on first use.
func (f *FS) Mount() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensureMounted()
}

// Close flushes and releases any handles still open, then releases the
// store if this instance owns it.
func (f *FS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.slots {
		s := &f.slots[i]
		if !s.open {
			continue
		}
		f.logger.Warn("handle still open at teardown", "path", s.path)
		if s.modified {
			if err := f.store.Write(s.id, s.buf[:s.size]); err != nil {
				f.logger.Error("flush failed at teardown", "path", s.path, "error", err)
			}
		}
		s.release()
	}

	if f.mounted && f.ownsStore {
		err := f.store.Close()
		f.mounted = false
		return err
	}
	f.mounted = false
	return nil
}

func (f *FS) checkPath(path string) error {
	if path == "" {
		return &ErrInvalidPath{Path: path, Reason: "empty"}
	}
	if len(path) >= f.cfg.MaxPathLength {
		return &ErrInvalidPath{Path: path, Reason: fmt.Sprintf("longer than %d bytes", f.cfg.MaxPathLength-1)}
	}
	return nil
}

// acquireStore mounts on demand and hands back the store for operations
// that don't touch the handle pool.
func (f *FS) acquireStore() (nvs.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureMounted(); err != nil {
		return nil, err
	}
	return f.store, nil
}

// Size reports the stored length for path via a length probe, without
// transferring content. An absent entry yields *ErrNotFound; a present
// zero-length entry yields 0.
func (f *FS) Size(path string) (int64, error) {
	if err := f.checkPath(path); err != nil {
		return 0, err
	}
	store, err := f.acquireStore()
	if err != nil {
		return 0, err
	}

	id := f.pathID(path)
	n, err := store.Len(id)
	if err != nil {
		if errors.As(err, new(*nvs.ErrIDNotFound)) {
			f.logger.Debug("size: file not found", "path", path, "id", fmt.Sprintf("0x%04x", id))
			return 0, &ErrNotFound{Path: path}
		}
		return 0, err
	}

	f.logger.Debug("size", "path", path, "id", fmt.Sprintf("0x%04x", id), "bytes", n)
	return int64(n), nil
}

// Exists reports whether path has a stored entry. A zero-length entry
// counts as existing.
func (f *FS) Exists(path string) (bool, error) {
	if err := f.checkPath(path); err != nil {
		return false, err
	}
	store, err := f.acquireStore()
	if err != nil {
		return false, err
	}

	var probe [1]byte
	_, err = store.Read(f.pathID(path), probe[:])
	if err != nil {
		if errors.As(err, new(*nvs.ErrIDNotFound)) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes the stored entry for path. Deleting an absent path is
// not an error.
func (f *FS) Delete(path string) error {
	if err := f.checkPath(path); err != nil {
		return err
	}
	store, err := f.acquireStore()
	if err != nil {
		return err
	}

	id := f.pathID(path)
	if err := store.Delete(id); err != nil {
		f.logger.Error("failed to delete file", "path", path, "error", err)
		return err
	}

	f.logger.Debug("deleted file", "path", path, "id", fmt.Sprintf("0x%04x", id))
	return nil
}

// CreateDir succeeds without doing anything: the store has no hierarchy,
// path strings are opaque keys.
func (f *FS) CreateDir(path string) error {
	return nil
}

// RemoveDir succeeds without doing anything, like CreateDir.
func (f *FS) RemoveDir(path string) error {
	return nil
}

// StorageRoot returns the configured storage root path handed to the
// protocol layer above.
func (f *FS) StorageRoot() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.storageRoot
}

// SetStorageRoot replaces the storage root path. The same bounds apply
// as to file paths.
func (f *FS) SetStorageRoot(root string) error {
	if err := f.checkPath(root); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageRoot = root
	return nil
}
