// Package db persists user settings and probed track durations in a small
// sqlite database. Playback state (current track, position, mode flags) is
// deliberately never stored.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	db *sql.DB
}

func New(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS durations (
			path TEXT PRIMARY KEY,
			mtime INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) SaveSetting(key, value string) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO settings (key, value)
		VALUES (?, ?)
	`, key, value)
	return err
}

// GetSetting returns the stored value for key, or "" when it was never set.
func (d *DB) GetSetting(key string) (string, error) {
	var value string
	err := d.db.QueryRow(`
		SELECT value FROM settings
		WHERE key = ?
	`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Duration returns the cached duration for path, if the file has not been
// modified since it was probed. Implements library.DurationCache.
func (d *DB) Duration(path string, mtime time.Time) (time.Duration, bool) {
	var (
		storedMtime int64
		durationMS  int64
	)
	err := d.db.QueryRow(`
		SELECT mtime, duration_ms FROM durations
		WHERE path = ?
	`, path).Scan(&storedMtime, &durationMS)
	if err != nil || storedMtime != mtime.Unix() {
		return 0, false
	}
	return time.Duration(durationMS) * time.Millisecond, true
}

// SaveDuration records a probed duration, replacing any stale entry.
func (d *DB) SaveDuration(path string, mtime time.Time, duration time.Duration) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO durations (path, mtime, duration_ms)
		VALUES (?, ?, ?)
	`, path, mtime.Unix(), duration.Milliseconds())
	return err
}
