package nvs

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"
)

type testStore struct {
	store Store
	dir   string
}

func (t *testStore) Cleanup() error {
	if err := t.store.Close(); err != nil {
		return err
	}
	return os.RemoveAll(t.dir)
}

func createTestStore() (*testStore, error) {
	dir, err := os.MkdirTemp(os.TempDir(), "nvs_test_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir for test: %w", err)
	}

	store, err := New(Config{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError,
		})),
		Directory: dir,
		CacheTTL:  time.Minute,
	})
	if err != nil {
		return nil, err
	}
	return &testStore{
		store: store,
		dir:   dir, // so we can clean up after
	}, nil
}

// -------------------------- TESTS

func TestStore_ReadWriteDelete(t *testing.T) {
	st, err := createTestStore()
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	defer st.Cleanup()

	t.Run("Write and Read basic entry", func(t *testing.T) {
		id := uint32(0x1001)
		value := []byte("imsi-record")
		if err := st.store.Write(id, value); err != nil {
			t.Errorf("Write() error = %v, wantErr nil", err)
		}

		dst := make([]byte, 64)
		n, err := st.store.Read(id, dst)
		if err != nil {
			t.Errorf("Read() error = %v, wantErr nil", err)
		}
		if n != len(value) {
			t.Errorf("Read() length got = %d, want %d", n, len(value))
		}
		if !bytes.Equal(dst[:n], value) {
			t.Errorf("Read() got = %q, want %q", dst[:n], value)
		}
	})

	t.Run("Read non-existent id", func(t *testing.T) {
		id := uint32(0x1fff)
		_, err := st.store.Read(id, nil)
		if err == nil {
			t.Errorf("Read() expected error for non-existent id, got nil")
		}
		var notFound *ErrIDNotFound
		if !errors.As(err, &notFound) {
			t.Errorf("Read() expected ErrIDNotFound, got %T", err)
		}
		if notFound.ID != id {
			t.Errorf("ErrIDNotFound.ID got = 0x%04x, want 0x%04x", notFound.ID, id)
		}
	})

	t.Run("Length probe with nil dst", func(t *testing.T) {
		id := uint32(0x1002)
		value := []byte{0x3f, 0x00, 0x2f, 0xe2}
		if err := st.store.Write(id, value); err != nil {
			t.Fatalf("Setup: Write() error = %v", err)
		}

		n, err := st.store.Len(id)
		if err != nil {
			t.Errorf("Len() error = %v, wantErr nil", err)
		}
		if n != len(value) {
			t.Errorf("Len() got = %d, want %d", n, len(value))
		}
	})

	t.Run("Read clamps to dst length", func(t *testing.T) {
		id := uint32(0x1003)
		value := []byte("0123456789")
		if err := st.store.Write(id, value); err != nil {
			t.Fatalf("Setup: Write() error = %v", err)
		}

		dst := make([]byte, 4)
		n, err := st.store.Read(id, dst)
		if err != nil {
			t.Errorf("Read() error = %v, wantErr nil", err)
		}
		if n != len(value) {
			t.Errorf("Read() stored length got = %d, want %d", n, len(value))
		}
		if !bytes.Equal(dst, value[:4]) {
			t.Errorf("Read() clamped copy got = %q, want %q", dst, value[:4])
		}
	})

	t.Run("Write overwrites in full", func(t *testing.T) {
		id := uint32(0x1004)
		if err := st.store.Write(id, []byte("long original content")); err != nil {
			t.Fatalf("Setup: Write() error = %v", err)
		}
		short := []byte("new")
		if err := st.store.Write(id, short); err != nil {
			t.Errorf("Write() error = %v, wantErr nil", err)
		}

		n, err := st.store.Len(id)
		if err != nil {
			t.Errorf("Len() error = %v, wantErr nil", err)
		}
		if n != len(short) {
			t.Errorf("Len() after overwrite got = %d, want %d", n, len(short))
		}
	})

	t.Run("Delete existing entry", func(t *testing.T) {
		id := uint32(0x1005)
		if err := st.store.Write(id, []byte("to be deleted")); err != nil {
			t.Fatalf("Setup: Write() error = %v", err)
		}

		if err := st.store.Delete(id); err != nil {
			t.Errorf("Delete() error = %v, wantErr nil", err)
		}

		_, err := st.store.Read(id, nil)
		if !errors.As(err, new(*ErrIDNotFound)) {
			t.Errorf("Read() after Delete expected ErrIDNotFound, got %v", err)
		}
	})

	t.Run("Delete non-existent entry", func(t *testing.T) {
		err := st.store.Delete(uint32(0x1ffe))
		if err != nil {
			t.Errorf("Delete() of non-existent id error = %v, wantErr nil", err)
		}
	})

	t.Run("Zero-length entry is readable", func(t *testing.T) {
		id := uint32(0x1006)
		if err := st.store.Write(id, []byte{}); err != nil {
			t.Errorf("Write() of empty value error = %v, wantErr nil", err)
		}

		n, err := st.store.Len(id)
		if err != nil {
			t.Errorf("Len() of empty entry error = %v, wantErr nil", err)
		}
		if n != 0 {
			t.Errorf("Len() of empty entry got = %d, want 0", n)
		}
	})
}

func TestStore_Persistence(t *testing.T) {
	dir, err := os.MkdirTemp(os.TempDir(), "nvs_persist_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	id := uint32(0x1042)
	value := []byte("survives remount")

	store, err := New(Config{Logger: logger, Directory: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := store.Write(id, value); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	store, err = New(Config{Logger: logger, Directory: dir})
	if err != nil {
		t.Fatalf("New() after remount error = %v", err)
	}
	defer store.Close()

	dst := make([]byte, len(value))
	n, err := store.Read(id, dst)
	if err != nil {
		t.Fatalf("Read() after remount error = %v", err)
	}
	if n != len(value) || !bytes.Equal(dst, value) {
		t.Errorf("Read() after remount got = %q (%d bytes), want %q", dst[:n], n, value)
	}
}
