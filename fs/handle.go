package fs

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/vjardin/zephyr-softsim/nvs"
)

// slot is one entry of the fixed-size handle arena. The generation
// counter is bumped on every claim and release so a *File kept past its
// close can never reach a reused slot.
type slot struct {
	gen      uint64
	open     bool
	id       uint32
	path     string
	buf      []byte
	size     int
	pos      int
	modified bool
}

func (s *slot) release() {
	s.buf = nil
	s.open = false
	s.gen++
}

// File is an open file. It references its slot by index and generation;
// the buffer behind it is exclusively owned by this handle until Close.
type File struct {
	fs  *FS
	idx int
	gen uint64
}

var _ io.ReadWriteSeeker = &File{}
var _ io.Closer = &File{}

type openMode struct {
	read   bool // 'r': load existing content
	write  bool // 'w': truncate/create
	update bool // '+': allow both read and write
}

func parseMode(mode string) (openMode, error) {
	if mode == "" {
		return openMode{}, &ErrInvalidMode{Mode: mode}
	}
	m := openMode{
		read:   strings.ContainsRune(mode, 'r'),
		write:  strings.ContainsRune(mode, 'w'),
		update: strings.ContainsRune(mode, '+'),
	}
	if !m.read && !m.write {
		return openMode{}, &ErrInvalidMode{Mode: mode}
	}
	return m, nil
}

// Open opens path with stdio-style mode semantics: "r" reads existing
// content and fails if the file is absent, "w" truncates or creates, "+"
// combined with either allows both reading and writing. On any failure
// no partial handle is retained.
func (f *FS) Open(path, mode string) (*File, error) {
	if err := f.checkPath(path); err != nil {
		f.logger.Error("open: bad path", "error", err)
		return nil, err
	}
	m, err := parseMode(mode)
	if err != nil {
		f.logger.Error("open: bad mode", "path", path, "mode", mode)
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureMounted(); err != nil {
		return nil, err
	}

	idx := -1
	for i := range f.slots {
		if !f.slots[i].open {
			idx = i
			break
		}
	}
	if idx < 0 {
		f.logger.Error("no free file handles", "path", path)
		return nil, &ErrNoFreeHandles{Max: len(f.slots)}
	}

	s := &f.slots[idx]
	s.gen++
	s.open = true
	s.id = f.pathID(path)
	s.path = path
	s.pos = 0
	s.size = 0
	s.modified = false

	s.buf = make([]byte, f.cfg.MaxFileSize)
	if f.eraseByte != 0 {
		for i := range s.buf {
			s.buf[i] = f.eraseByte
		}
	}

	f.logger.Debug("open", "path", path, "mode", mode, "id", fmt.Sprintf("0x%04x", s.id))

	if m.read || m.update {
		n, err := f.store.Read(s.id, s.buf)
		switch {
		case err == nil:
			if n > len(s.buf) {
				n = len(s.buf)
			}
			s.size = n
			f.logger.Debug("loaded file", "path", path, "id", fmt.Sprintf("0x%04x", s.id), "size", s.size)
		case m.read && !m.update && !m.write:
			// Strict read: the file must already exist.
			s.release()
			if errors.As(err, new(*nvs.ErrIDNotFound)) {
				f.logger.Debug("file not found", "path", path)
				return nil, &ErrNotFound{Path: path}
			}
			f.logger.Error("open: store read failed", "path", path, "error", err)
			return nil, err
		default:
			// Writable open of an absent or unreadable entry starts empty.
			s.size = 0
		}
	}

	if m.write {
		s.size = 0
		s.modified = true
	}

	return &File{fs: f, idx: idx, gen: s.gen}, nil
}

// slot resolves the handle to its arena slot, rejecting handles that
// were closed or whose slot was reclaimed by a later open.
func (h *File) slot() (*slot, error) {
	s := &h.fs.slots[h.idx]
	if !s.open || s.gen != h.gen {
		return nil, &ErrHandleClosed{}
	}
	return s, nil
}

// Close flushes the buffer back to the store when the file was modified,
// then releases the slot. A flush failure is logged but does not keep
// the slot claimed; the returned error reflects handle validity only.
func (h *File) Close() error {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()

	s, err := h.slot()
	if err != nil {
		h.fs.logger.Error("close: invalid handle")
		return err
	}

	if s.modified {
		h.fs.logger.Debug("close: flushing",
			"path", s.path, "id", fmt.Sprintf("0x%04x", s.id), "size", s.size)
		if err := h.fs.store.Write(s.id, s.buf[:s.size]); err != nil {
			h.fs.logger.Error("close: store write failed", "path", s.path, "error", err)
		}
	}

	s.release()
	return nil
}

// ReadItems copies up to count items of itemSize bytes from the current
// position into dst and returns the number of whole items copied. A read
// at or past end of file yields zero items without error.
func (h *File) ReadItems(dst []byte, itemSize, count int) (int, error) {
	s, err := h.slot()
	if err != nil {
		return 0, err
	}
	if dst == nil {
		return 0, &ErrInvalidArgument{Reason: "nil destination buffer"}
	}
	if itemSize <= 0 || count < 0 {
		return 0, &ErrInvalidArgument{Reason: "item size and count must be positive"}
	}
	if count > 0 && itemSize > math.MaxInt/count {
		return 0, &ErrInvalidArgument{Reason: "item span overflows"}
	}

	span := itemSize * count
	if span > len(dst) {
		span = len(dst)
	}

	available := 0
	if s.pos < s.size {
		available = s.size - s.pos
	}
	if span > available {
		span = available
	}

	if span > 0 {
		copy(dst, s.buf[s.pos:s.pos+span])
		s.pos += span
	}

	return span / itemSize, nil
}

// WriteItems copies count items of itemSize bytes from src into the
// buffer at the current position. A write that would run past the buffer
// capacity is rejected whole: zero items written, position unchanged.
func (h *File) WriteItems(src []byte, itemSize, count int) (int, error) {
	s, err := h.slot()
	if err != nil {
		return 0, err
	}
	if src == nil {
		return 0, &ErrInvalidArgument{Reason: "nil source buffer"}
	}
	if itemSize <= 0 || count < 0 {
		return 0, &ErrInvalidArgument{Reason: "item size and count must be positive"}
	}
	if count > 0 && itemSize > math.MaxInt/count {
		return 0, &ErrInvalidArgument{Reason: "item span overflows"}
	}

	span := itemSize * count
	if span > len(src) {
		return 0, &ErrInvalidArgument{Reason: "source buffer shorter than item span"}
	}

	if s.pos+span > len(s.buf) {
		h.fs.logger.Error("write would exceed file capacity",
			"path", s.path, "pos", s.pos, "span", span, "capacity", len(s.buf))
		return 0, &ErrCapacityExceeded{Requested: span, Available: len(s.buf) - s.pos}
	}

	copy(s.buf[s.pos:], src[:span])
	s.pos += span
	if s.pos > s.size {
		// Sparse extension: bytes between old size and pos keep the
		// erase pattern from allocation.
		s.size = s.pos
	}
	s.modified = true

	return count, nil
}

// Seek repositions the cursor. Positions past the current size are
// allowed: reads there yield nothing, writes are still capacity-checked.
// A negative result or unknown whence fails with the position unchanged.
func (h *File) Seek(offset int64, whence int) (int64, error) {
	s, err := h.slot()
	if err != nil {
		return 0, err
	}

	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = int64(s.pos) + offset
	case io.SeekEnd:
		newPos = int64(s.size) + offset
	default:
		return int64(s.pos), &ErrInvalidSeek{Offset: offset, Whence: whence}
	}

	if newPos < 0 {
		return int64(s.pos), &ErrInvalidSeek{Offset: newPos, Whence: whence}
	}

	s.pos = int(newPos)
	return newPos, nil
}

// Read implements io.Reader over the staged buffer.
func (h *File) Read(p []byte) (int, error) {
	s, err := h.slot()
	if err != nil {
		return 0, err
	}
	if s.pos >= s.size {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:s.size])
	s.pos += n
	return n, nil
}

// Write implements io.Writer over the staged buffer. Unlike the usual
// short-write convention, a write past capacity transfers nothing.
func (h *File) Write(p []byte) (int, error) {
	s, err := h.slot()
	if err != nil {
		return 0, err
	}
	if s.pos+len(p) > len(s.buf) {
		return 0, &ErrCapacityExceeded{Requested: len(p), Available: len(s.buf) - s.pos}
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	if s.pos > s.size {
		s.size = s.pos
	}
	s.modified = true
	return n, nil
}

// Name returns the path the file was opened with, or "" for a closed
// handle.
func (h *File) Name() string {
	s, err := h.slot()
	if err != nil {
		return ""
	}
	return s.path
}

// Size returns the current logical size of the open file.
func (h *File) Size() (int, error) {
	s, err := h.slot()
	if err != nil {
		return 0, err
	}
	return s.size, nil
}
