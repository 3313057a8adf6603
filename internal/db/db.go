// Package db is the SQLite (optionally SQLCipher-encrypted) note store.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/quicknotes/internal/notes"
	"github.com/kuitang/quicknotes/internal/obs"
)

const (
	// MaxOpenConns is the maximum number of open connections.
	// SQLite is single-writer, so high connection counts are counterproductive.
	MaxOpenConns = 10

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns = 2
)

// Config configures the SQLite store.
type Config struct {
	// Path is a file path or a SQLite URI such as "file:x?mode=memory".
	Path string
	// Key is an optional 64-character hex SQLCipher key.
	Key string
}

// NotesDB implements notes.Store on SQLite.
type NotesDB struct {
	db    *sql.DB
	newID func() string
}

var _ notes.Store = (*NotesDB)(nil)

// NewNotesDBFromSQL wraps an existing sql.DB whose schema is already applied.
func NewNotesDBFromSQL(sqlDB *sql.DB) *NotesDB {
	return &NotesDB{
		db:    sqlDB,
		newID: func() string { return uuid.New().String() },
	}
}

// Open opens the database, verifies the key (if any) and applies the schema.
func Open(ctx context.Context, cfg Config) (*NotesDB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	if !strings.HasPrefix(cfg.Path, "file:") && cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dsn := cfg.Path
	if cfg.Key != "" {
		// Format: file.db?_pragma_key=x'HEX_KEY'&_pragma_cipher_page_size=4096
		dsn = appendSQLiteParams(dsn, fmt.Sprintf("_pragma_key=x'%s'&_pragma_cipher_page_size=4096", cfg.Key))
	}
	dsn = appendSQLiteParams(dsn, sqliteCommonParams())

	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open notes database: %w", err)
	}
	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)

	// A wrong key only shows up on the first real query.
	var sqliteVersion string
	if err := sqlDB.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to verify notes database connection: %w", err)
	}

	if _, err := sqlDB.ExecContext(ctx, NotesSchema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize notes schema: %w", err)
	}

	obs.Pkg("db").Info("notes database opened",
		"path", cfg.Path,
		"encrypted", cfg.Key != "",
		"sqlite_version", sqliteVersion,
	)
	return NewNotesDBFromSQL(sqlDB), nil
}

// DB returns the underlying sql.DB for direct access when needed.
func (d *NotesDB) DB() *sql.DB {
	return d.db
}

const noteColumns = "id, title, content, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*notes.Note, error) {
	var (
		n                    notes.Note
		createdAt, updatedAt int64
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	n.CreatedAt = time.UnixMilli(createdAt).UTC()
	n.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &n, nil
}

// FindAllSorted returns every note, most recently updated first.
func (d *NotesDB) FindAllSorted(ctx context.Context) ([]notes.Note, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes ORDER BY updated_at DESC, created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	list := make([]notes.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		list = append(list, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return list, nil
}

// Insert stores a new note under a fresh UUID.
func (d *NotesDB) Insert(ctx context.Context, note notes.Note) (*notes.Note, error) {
	note.ID = d.newID()
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO notes ("+noteColumns+") VALUES (?, ?, ?, ?, ?)",
		note.ID, note.Title, note.Content, note.CreatedAt.UnixMilli(), note.UpdatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return &note, nil
}

// FindByID retrieves a note by id.
func (d *NotesDB) FindByID(ctx context.Context, id string) (*notes.Note, error) {
	n, err := scanNote(d.db.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notes.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read note: %w", err)
	}
	return n, nil
}

// FindAndReplaceByID updates title, content and updated_at in one
// transaction and returns the stored row.
func (d *NotesDB) FindAndReplaceByID(ctx context.Context, id, title, content string, updatedAt time.Time) (*notes.Note, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE notes SET title = ?, content = ?, updated_at = MAX(created_at, ?) WHERE id = ?",
		title, content, updatedAt.UnixMilli(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	if affected == 0 {
		return nil, notes.ErrNotFound
	}

	n, err := scanNote(tx.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("failed to read updated note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return n, nil
}

// FindAndDeleteByID removes a note and returns it.
func (d *NotesDB) FindAndDeleteByID(ctx context.Context, id string) (*notes.Note, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	n, err := scanNote(tx.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notes.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read note: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to delete note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (d *NotesDB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database.
func (d *NotesDB) Close(context.Context) error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func sqliteCommonParams() string {
	// WAL + NORMAL provides good throughput while preserving safety.
	return "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
}

func appendSQLiteParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}
