// Package testdb provides in-memory note stores for tests.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kuitang/quicknotes/internal/db"
)

// TestKey is a fixed SQLCipher key for encrypted in-memory stores.
const TestKey = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

// NewNotesDBInMemory creates an in-memory SQLite note store. Each call gets
// its own shared-cache database so parallel tests do not see each other.
func NewNotesDBInMemory() (*db.NotesDB, error) {
	return open("")
}

// NewEncryptedNotesDBInMemory is NewNotesDBInMemory with a SQLCipher key.
func NewEncryptedNotesDBInMemory() (*db.NotesDB, error) {
	return open(TestKey)
}

func open(key string) (*db.NotesDB, error) {
	name := "notes-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	if key != "" {
		dsn += fmt.Sprintf("&_pragma_key=x'%s'&_pragma_cipher_page_size=4096", key)
	}

	sqlDB, err := sql.Open(db.SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory notes database: %w", err)
	}

	// The shared-cache database lives as long as one connection stays open.
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(0)

	var sqliteVersion string
	if err := sqlDB.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to verify in-memory notes database: %w", err)
	}

	if err := applyFastSQLitePragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply fast SQLite pragmas: %w", err)
	}

	if _, err := sqlDB.ExecContext(context.Background(), db.NotesSchema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize in-memory notes schema: %w", err)
	}

	return db.NewNotesDBFromSQL(sqlDB), nil
}

func applyFastSQLitePragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=MEMORY",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}
