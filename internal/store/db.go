package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

type dialect struct {
	driver string
	schema string
	get    string
	set    string
	del    string
}

var postgresDialect = dialect{
	driver: "pgx",
	schema: `
	CREATE TABLE IF NOT EXISTS kv_entries (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	get: `SELECT value FROM kv_entries WHERE key = $1`,
	set: `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`,
	del: `DELETE FROM kv_entries WHERE key = $1`,
}

var sqliteDialect = dialect{
	driver: "sqlite3",
	schema: `
	CREATE TABLE IF NOT EXISTS kv_entries (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	get: `SELECT value FROM kv_entries WHERE key = ?`,
	set: `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`,
	del: `DELETE FROM kv_entries WHERE key = ?`,
}

// DB is a Storage backed by a single kv_entries table, on Postgres (pgx) or SQLite.
type DB struct {
	Client  *sql.DB
	dialect dialect
}

// NewDB creates a Postgres connection with sane defaults and ensures the table exists.
func NewDB(ctx context.Context, connString string) (*DB, error) {
	db, err := sql.Open(postgresDialect.driver, connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return open(ctx, db, postgresDialect)
}

// NewSQLite opens (creating if needed) a SQLite file at path.
func NewSQLite(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open(sqliteDialect.driver, path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return open(ctx, db, sqliteDialect)
}

func open(ctx context.Context, db *sql.DB, d dialect) (*DB, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{Client: db, dialect: d}, nil
}

// Get returns the value stored under key.
func (d *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var val string
	err := d.Client.QueryRowContext(ctx, d.dialect.get, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

// Set upserts the value under key.
func (d *DB) Set(ctx context.Context, key string, value []byte) error {
	_, err := d.Client.ExecContext(ctx, d.dialect.set, key, string(value), time.Now().UTC())
	return err
}

// Delete removes key.
func (d *DB) Delete(ctx context.Context, key string) error {
	_, err := d.Client.ExecContext(ctx, d.dialect.del, key)
	return err
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
