package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// ensureImage returns the stored image for name, creating an all-zero row
// when none exists.  A stored image of the wrong size is replaced with zeroes
// so that it fails the sentinel check upstream.
//
// Must be called inside an existing transaction.
func ensureImage(ctx context.Context, tx *sql.Tx, name string, size int, nowMs int64) ([]byte, error) {
	var image []byte
	err := tx.QueryRowContext(ctx, `
SELECT image FROM credential_images WHERE name = ?;
`, name).Scan(&image)

	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("ensureImage %s: %w", name, err)
	case len(image) == size:
		return image, nil
	}

	image = make([]byte, size)
	if _, err := tx.ExecContext(ctx, `
INSERT INTO credential_images(name, image, size_bytes, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  image = excluded.image,
  size_bytes = excluded.size_bytes,
  updated_at_ms = excluded.updated_at_ms;
`, name, image, size, nowMs, nowMs); err != nil {
		return nil, fmt.Errorf("ensureImage %s: reset: %w", name, err)
	}
	return image, nil
}
