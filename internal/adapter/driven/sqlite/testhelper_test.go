package sqlite

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"testing"
)

// openTestDB opens a named shared in-memory database without applying
// migrations. The name comes from t.Name(), so parallel tests never share a
// database.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	name := url.PathEscape(t.Name())
	// In-memory databases cannot use WAL.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		name,
	)

	db, err := open(context.Background(), dsn, name)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// setupTestDB returns a migrated in-memory database.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db := openTestDB(t)
	if err := RunMigrations(db.Writer); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

// testKey is a fixed AES-256 key.
func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}
