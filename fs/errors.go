package fs

import "fmt"

// ErrNotFound is returned when a path has no stored entry and the
// operation requires one.
type ErrNotFound struct {
	Path string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// ErrInvalidPath is returned when a path fails validation before any
// shared state is touched.
type ErrInvalidPath struct {
	Path   string
	Reason string
}

func (e *ErrInvalidPath) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// ErrInvalidMode is returned for an unusable open mode string.
type ErrInvalidMode struct {
	Mode string
}

func (e *ErrInvalidMode) Error() string {
	return fmt.Sprintf("invalid open mode %q", e.Mode)
}

// ErrNoFreeHandles is returned when the handle pool is exhausted.
type ErrNoFreeHandles struct {
	Max int
}

func (e *ErrNoFreeHandles) Error() string {
	return fmt.Sprintf("no free file handles (max %d open)", e.Max)
}

// ErrHandleClosed is returned when an operation reaches a handle whose
// slot has been released or reclaimed by a later open.
type ErrHandleClosed struct{}

func (e *ErrHandleClosed) Error() string {
	return "file handle is closed"
}

// ErrCapacityExceeded is returned when a write would run past the fixed
// buffer capacity. The write is rejected whole; no bytes are transferred.
type ErrCapacityExceeded struct {
	Requested int
	Available int
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("write of %d bytes exceeds remaining capacity %d", e.Requested, e.Available)
}

// ErrInvalidSeek is returned when a seek resolves to a negative position
// or names an unknown whence. The position is left unchanged.
type ErrInvalidSeek struct {
	Offset int64
	Whence int
}

func (e *ErrInvalidSeek) Error() string {
	return fmt.Sprintf("invalid seek (offset %d, whence %d)", e.Offset, e.Whence)
}

// ErrInvalidArgument is returned for malformed operation arguments.
type ErrInvalidArgument struct {
	Reason string
}

func (e *ErrInvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Reason)
}
