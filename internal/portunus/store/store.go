package store

import (
	"context"
	"errors"
	"fmt"
)

var ErrOutOfBounds = errors.New("access outside medium")

// Medium is a fixed-size, byte-addressable backing store for the credential
// table, standing in for the EEPROM of the original hardware.  A medium
// that cannot find an image of exactly Size bytes reads as all zeroes.
type Medium interface {
	Size() int
	ReadAt(ctx context.Context, p []byte, off int) error
	WriteAt(ctx context.Context, p []byte, off int) error
}

// SizedMedium is a Medium that can report the length of the image it found
// in its backing store, before any reset.  Zero means no image existed.
type SizedMedium interface {
	Medium
	StoredSize(ctx context.Context) (int, error)
}

// StoredSizeMismatch reports whether m found a prior image whose length
// differs from m.Size(), typically after the table capacity was changed.
// Media that cannot tell report no mismatch.
func StoredSizeMismatch(ctx context.Context, m Medium) (stored int, mismatch bool, err error) {
	sm, ok := m.(SizedMedium)
	if !ok {
		return 0, false, nil
	}
	stored, err = sm.StoredSize(ctx)
	if err != nil {
		return 0, false, err
	}
	return stored, stored != 0 && stored != m.Size(), nil
}

// CheckBounds validates an access of n bytes at off against a medium of
// the given size.
func CheckBounds(size, off, n int) error {
	if off < 0 || n < 0 || off+n > size {
		return fmt.Errorf("%w: off=%d len=%d size=%d", ErrOutOfBounds, off, n, size)
	}
	return nil
}
