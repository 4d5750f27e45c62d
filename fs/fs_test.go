package fs_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vjardin/zephyr-softsim/fs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// newTestFS builds an isolated FS over a temp directory. Options mutate
// the config before construction.
func newTestFS(t *testing.T, opts ...func(*fs.Config)) *fs.FS {
	t.Helper()

	cfg := fs.Config{
		Logger:    testLogger(),
		Directory: t.TempDir(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	f, err := fs.New(cfg)
	require.NoError(t, err, "failed to create FS")
	t.Cleanup(func() { f.Close() })
	return f
}

func TestPathIDStableAcrossInstances(t *testing.T) {
	a := newTestFS(t)
	b := newTestFS(t)

	paths := []string{
		"/softsim/3f00/2fe2",
		"/softsim/3f00/7ff0/6f07",
		"a",
		"/deeply/nested/path/with/many/segments",
	}

	for _, p := range paths {
		id := a.PathID(p)
		require.Equal(t, id, a.PathID(p), "identifier must be stable across calls")
		require.Equal(t, id, b.PathID(p), "identifier must be stable across instances")
		require.GreaterOrEqual(t, id, uint32(fs.DefaultIDBase))
		require.Less(t, id, uint32(fs.DefaultIDBase+fs.DefaultIDSpan))
	}
}

func TestPathValidation(t *testing.T) {
	f := newTestFS(t)

	_, err := f.Open("", "r")
	require.ErrorAs(t, err, new(*fs.ErrInvalidPath))

	long := make([]byte, fs.DefaultMaxPathLength)
	for i := range long {
		long[i] = 'x'
	}
	_, err = f.Open(string(long), "w")
	require.ErrorAs(t, err, new(*fs.ErrInvalidPath))

	_, err = f.Size("")
	require.ErrorAs(t, err, new(*fs.ErrInvalidPath))

	err = f.Delete("")
	require.ErrorAs(t, err, new(*fs.ErrInvalidPath))
}

func TestOpenModeValidation(t *testing.T) {
	f := newTestFS(t)

	for _, mode := range []string{"", "x", "+"} {
		_, err := f.Open("/softsim/file", mode)
		require.ErrorAs(t, err, new(*fs.ErrInvalidMode), "mode %q", mode)
	}
}

func TestSizeAndExists(t *testing.T) {
	f := newTestFS(t)
	path := "/softsim/3f00/2fe2"

	_, err := f.Size(path)
	require.ErrorAs(t, err, new(*fs.ErrNotFound), "size of absent path")

	ok, err := f.Exists(path)
	require.NoError(t, err)
	require.False(t, ok, "absent path must not exist")

	h, err := f.Open(path, "w")
	require.NoError(t, err)
	_, err = h.Write([]byte("iccid"))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	size, err := f.Size(path)
	require.NoError(t, err)
	require.Equal(t, int64(5), size)

	ok, err = f.Exists(path)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestZeroLengthEntryExists(t *testing.T) {
	f := newTestFS(t)
	path := "/softsim/empty"

	// A truncate-only open persists an empty entry on close.
	h, err := f.Open(path, "w")
	require.NoError(t, err)
	require.NoError(t, h.Close())

	size, err := f.Size(path)
	require.NoError(t, err)
	require.Equal(t, int64(0), size, "zero-length entry reports size 0, not absence")

	ok, err := f.Exists(path)
	require.NoError(t, err)
	require.True(t, ok, "zero-length entry counts as existing")
}

func TestIdempotentDelete(t *testing.T) {
	f := newTestFS(t)
	path := "/softsim/gone"

	require.NoError(t, f.Delete(path), "deleting an absent path succeeds")
	require.NoError(t, f.Delete(path), "repeated delete succeeds")

	h, err := f.Open(path, "w")
	require.NoError(t, err)
	_, err = h.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	require.NoError(t, f.Delete(path))
	require.NoError(t, f.Delete(path))

	_, err = f.Size(path)
	require.ErrorAs(t, err, new(*fs.ErrNotFound))
}

func TestDirectoryOpsAreNoOps(t *testing.T) {
	f := newTestFS(t)

	require.NoError(t, f.CreateDir("/softsim/3f00"))
	require.NoError(t, f.RemoveDir("/softsim/3f00"))
	require.NoError(t, f.RemoveDir("/never/created"))
}

func TestStorageRoot(t *testing.T) {
	f := newTestFS(t)

	require.Equal(t, fs.DefaultStorageRoot, f.StorageRoot())

	require.NoError(t, f.SetStorageRoot("/sim/"))
	require.Equal(t, "/sim/", f.StorageRoot())

	err := f.SetStorageRoot("")
	require.ErrorAs(t, err, new(*fs.ErrInvalidPath))
	require.Equal(t, "/sim/", f.StorageRoot(), "failed set leaves root unchanged")
}

func TestPersistenceAcrossRemount(t *testing.T) {
	dir := t.TempDir()
	path := "/softsim/3f00/6f07"
	content := []byte{0x08, 0x09, 0x10, 0x10, 0x00, 0x00, 0x00, 0x10, 0x89}

	f, err := fs.New(fs.Config{Logger: testLogger(), Directory: dir})
	require.NoError(t, err)

	h, err := f.Open(path, "w")
	require.NoError(t, err)
	_, err = h.Write(content)
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.NoError(t, f.Close())

	f, err = fs.New(fs.Config{Logger: testLogger(), Directory: dir})
	require.NoError(t, err)
	defer f.Close()

	h, err = f.Open(path, "r")
	require.NoError(t, err)
	defer h.Close()

	got := make([]byte, len(content))
	n, err := h.ReadItems(got, 1, len(content))
	require.NoError(t, err)
	require.Equal(t, len(content), n)
	require.Equal(t, content, got)
}
