package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

// busyTimeout bounds how long a writer waits for another process to release
// the database lock.
const busyTimeout = 5 * time.Second

// SQLiteRepository stores each collection as one row of the collections
// table. It implements store.KV.
type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

// dsn makes every transaction BEGIN IMMEDIATE, so an Update takes the
// database write lock before its first read, and makes writers wait for a
// lock held by another process instead of failing with SQLITE_BUSY.
func dsn(dbPath string) string {
	return fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(%d)", dbPath, busyTimeout.Milliseconds())
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and keeps reads consistent
	// with the latest write.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

// SchemaVersion is the migration version the database was opened at.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get implements store.KV
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM collections WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

const upsertCollection = `
	INSERT INTO collections (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// Set implements store.KV
func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, upsertCollection, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Collection saved to SQLite",
		"key", key,
		"bytes", len(value))

	return nil
}

// UpdatedAt returns when key was last written.
func (r *SQLiteRepository) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT updated_at FROM collections WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, store.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get updated_at for %s: %w", key, err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse updated_at for %s: %w", key, err)
	}
	return t, nil
}

// Update implements store.KV. The read, fn and the writes share one
// immediate transaction, which holds the SQLite write lock for its whole
// duration and so excludes writers in other processes too.
func (r *SQLiteRepository) Update(ctx context.Context, keys []string, fn store.UpdateFunc) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current := make(map[string][]byte, len(keys))
	for _, key := range keys {
		var value []byte
		err := tx.QueryRowContext(ctx, `SELECT value FROM collections WHERE key = ?`, key).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		current[key] = value
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	stamp := time.Now().UTC().Format(time.RFC3339)
	for key, value := range next {
		if _, err := tx.ExecContext(ctx, upsertCollection, key, value, stamp); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}

	slog.DebugContext(ctx, "Collections updated in SQLite", "keys", keys, "written", len(next))
	return nil
}
