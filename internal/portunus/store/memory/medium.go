package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store"
)

// Medium is a volatile credential medium.  It is intended for tests and
// PORTUNUS_STORAGE=memory bench runs.
type Medium struct {
	mu   sync.RWMutex
	data []byte
}

func New(size int) *Medium {
	return &Medium{data: make([]byte, size)}
}

func (m *Medium) Size() int { return len(m.data) }

func (m *Medium) ReadAt(_ context.Context, p []byte, off int) error {
	if err := store.CheckBounds(len(m.data), off, len(p)); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	copy(p, m.data[off:])
	return nil
}

func (m *Medium) WriteAt(_ context.Context, p []byte, off int) error {
	if err := store.CheckBounds(len(m.data), off, len(p)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.data[off:], p)
	return nil
}

// Bytes returns a copy of the raw image.  Test-only helper.
func (m *Medium) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}
