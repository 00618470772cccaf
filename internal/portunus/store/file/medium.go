package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store"
)

// Medium keeps the credential image in a flat file, byte for byte in the
// on-device layout, so an image dumped from a kiosk can be mounted as is.
type Medium struct {
	mu    sync.Mutex
	f     *os.File
	size  int
	found int
}

// Open opens (or creates) the image at path.  A file whose length is not
// size is truncated to zeroes so it fails the sentinel check and gets
// reinitialized.
func Open(path string, size int) (*Medium, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir image dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat image: %w", err)
	}

	if st.Size() != int64(size) {
		if err := f.Truncate(0); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("reset image: %w", err)
		}
		if err := f.Truncate(int64(size)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("size image: %w", err)
		}
	}

	return &Medium{f: f, size: size, found: int(st.Size())}, nil
}

func (m *Medium) Size() int { return m.size }

// StoredSize is the length the file had when it was opened.
func (m *Medium) StoredSize(context.Context) (int, error) { return m.found, nil }

func (m *Medium) ReadAt(_ context.Context, p []byte, off int) error {
	if err := store.CheckBounds(m.size, off, len(p)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.f.ReadAt(p, int64(off)); err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	return nil
}

// WriteAt writes and fsyncs, so a completed call survives power loss.
func (m *Medium) WriteAt(_ context.Context, p []byte, off int) error {
	if err := store.CheckBounds(m.size, off, len(p)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.f.WriteAt(p, int64(off)); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	if err := m.f.Sync(); err != nil {
		return fmt.Errorf("sync image: %w", err)
	}
	return nil
}

func (m *Medium) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.f.Close()
}
