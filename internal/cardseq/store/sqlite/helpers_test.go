package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/BrandonDHaskell/cardseq/internal/db"
)

// openTestDB opens a fresh database file through db.Open, so tests run on the
// production PRAGMAs and migrations, and returns it with its single writer.
// Both are closed when the test finishes.
func openTestDB(t *testing.T) (*sql.DB, *db.Worker) {
	t.Helper()

	conn, err := db.Open(context.Background(), db.Config{
		Path: filepath.Join(t.TempDir(), "cardseq.db"),
	})
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}
	w := db.NewWorker(conn)

	t.Cleanup(func() {
		w.Close()
		conn.Close()
	})
	return conn, w
}
