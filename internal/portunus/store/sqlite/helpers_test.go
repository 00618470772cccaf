package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/db"
	sqlitestore "github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store/sqlite"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production, closed when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Shared cache keeps the in-memory database alive while sql.DB recycles
	// its single connection.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	require.NoError(t, err, "sql.Open")

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	require.NoError(t, conn.Ping(), "ping")
	require.NoError(t, db.Migrate(context.Background(), conn), "migrate")

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestMedium returns a Medium of the given size with its own writer.
func newTestMedium(t *testing.T, conn *sql.DB, size int) *sqlitestore.Medium {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(w.Close)
	return sqlitestore.NewMedium(conn, w, "", size)
}
