package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/kiosk/internal/db"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store"
)

// DefaultImageName is the row holding the kiosk's credential table.
const DefaultImageName = "credentials"

// Medium stores the credential image as a single BLOB row.  Reads go
// straight to the connection; writes are serialized through the db.Worker
// so each WriteAt is one read-modify-write transaction.
type Medium struct {
	db     *sql.DB
	writer *dbpkg.Worker
	name   string
	size   int
}

func NewMedium(db *sql.DB, writer *dbpkg.Worker, name string, size int) *Medium {
	if name == "" {
		name = DefaultImageName
	}
	return &Medium{db: db, writer: writer, name: name, size: size}
}

func (m *Medium) Size() int { return m.size }

func (m *Medium) ReadAt(ctx context.Context, p []byte, off int) error {
	if err := store.CheckBounds(m.size, off, len(p)); err != nil {
		return err
	}

	var image []byte
	err := m.db.QueryRowContext(ctx, `
SELECT image FROM credential_images WHERE name = ?;
`, m.name).Scan(&image)

	if err == sql.ErrNoRows || (err == nil && len(image) != m.size) {
		clear(p)
		return nil
	}
	if err != nil {
		return fmt.Errorf("ReadAt query: %w", err)
	}

	copy(p, image[off:off+len(p)])
	return nil
}

// StoredSize is the length of the stored image row, or 0 when there is none.
func (m *Medium) StoredSize(ctx context.Context) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx, `
SELECT length(image) FROM credential_images WHERE name = ?;
`, m.name).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("StoredSize query: %w", err)
	}
	return n, nil
}

func (m *Medium) WriteAt(ctx context.Context, p []byte, off int) error {
	if err := store.CheckBounds(m.size, off, len(p)); err != nil {
		return err
	}

	nowMs := time.Now().UTC().UnixMilli()

	// Once queued the transaction commits regardless of ctx, so the caller
	// waits for its real result instead of reporting a saved slot as failed.
	return m.writer.Do(context.WithoutCancel(ctx), func(ctx context.Context, tx *sql.Tx) error {
		image, err := ensureImage(ctx, tx, m.name, m.size, nowMs)
		if err != nil {
			return err
		}

		copy(image[off:], p)

		if _, err := tx.ExecContext(ctx, `
UPDATE credential_images
SET image = ?,
    updated_at_ms = ?
WHERE name = ?;
`, image, nowMs, m.name); err != nil {
			return fmt.Errorf("WriteAt update image: %w", err)
		}

		return nil
	})
}
