// Package storage provides SQLite-backed persistence for client settings and
// connection check history. Predictions themselves are never stored.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const DefaultAPIURL = "http://127.0.0.1:5000"

// Settings are the user-editable client preferences.
type Settings struct {
	APIURL        string
	Notifications bool
	AutoRefresh   bool
	DarkMode      bool
	UpdatedAt     time.Time
}

// DefaultSettings returns the settings used before anything is saved and after a reset.
func DefaultSettings() Settings {
	return Settings{
		APIURL:        DefaultAPIURL,
		Notifications: true,
		AutoRefresh:   false,
		DarkMode:      false,
	}
}

// Validate checks settings field constraints. The api url must be an
// absolute http(s) URL with a host once surrounding spaces and trailing
// slashes are removed.
func (s *Settings) Validate() error {
	raw := normalizeURL(s.APIURL)
	if raw == "" {
		return errors.New("api url must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("api url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("api url must start with http:// or https://")
	}
	if u.Host == "" {
		return fmt.Errorf("api url %q has no host", raw)
	}
	return nil
}

func normalizeURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// ConnectionCheck is one recorded reachability probe.
type ConnectionCheck struct {
	APIURL    string
	Connected bool
	CheckedAt time.Time
}

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db        *sql.DB
	maxChecks int
}

// New opens or creates the SQLite database at dbPath, keeping at most
// maxChecks connection checks. An empty dbPath defaults to
// $TMPDIR/tennisoracle/data.db.
func New(maxChecks int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "tennisoracle", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if maxChecks < 1 {
		maxChecks = 1
	}
	s := &Storage{db: db, maxChecks: maxChecks}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			id            INTEGER PRIMARY KEY CHECK (id = 1),
			api_url       TEXT NOT NULL,
			notifications INTEGER NOT NULL,
			auto_refresh  INTEGER NOT NULL,
			dark_mode     INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS connection_checks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			api_url    TEXT NOT NULL,
			connected  INTEGER NOT NULL,
			checked_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_checked_at ON connection_checks(checked_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadSettings returns the saved settings, or DefaultSettings when none are saved.
func (s *Storage) LoadSettings() (Settings, error) {
	row := s.db.QueryRow(`
		SELECT api_url, notifications, auto_refresh, dark_mode, updated_at
		FROM settings WHERE id = 1`)

	var st Settings
	var notifications, autoRefresh, darkMode int
	var updatedAtNano int64
	err := row.Scan(&st.APIURL, &notifications, &autoRefresh, &darkMode, &updatedAtNano)
	if err == sql.ErrNoRows {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	st.Notifications = notifications != 0
	st.AutoRefresh = autoRefresh != 0
	st.DarkMode = darkMode != 0
	st.UpdatedAt = time.Unix(0, updatedAtNano)
	return st, nil
}

// SaveSettings validates and stores settings, stamping UpdatedAt.
func (s *Storage) SaveSettings(st *Settings) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	st.APIURL = normalizeURL(st.APIURL)
	st.UpdatedAt = time.Now()

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO settings
			(id, api_url, notifications, auto_refresh, dark_mode, updated_at)
		VALUES (1,?,?,?,?,?)`,
		st.APIURL, boolToInt(st.Notifications), boolToInt(st.AutoRefresh), boolToInt(st.DarkMode),
		st.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// ResetSettings discards saved settings and returns the defaults.
func (s *Storage) ResetSettings() (Settings, error) {
	if _, err := s.db.Exec(`DELETE FROM settings`); err != nil {
		return Settings{}, fmt.Errorf("failed to reset settings: %w", err)
	}
	return DefaultSettings(), nil
}

// RecordConnectionCheck appends a probe result, dropping the oldest beyond maxChecks.
func (s *Storage) RecordConnectionCheck(check ConnectionCheck) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`
		INSERT INTO connection_checks (api_url, connected, checked_at)
		VALUES (?,?,?)`,
		check.APIURL, boolToInt(check.Connected), check.CheckedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to insert connection check: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM connection_checks WHERE id NOT IN (
			SELECT id FROM connection_checks ORDER BY checked_at DESC, id DESC LIMIT ?
		)`, s.maxChecks); err != nil {
		return fmt.Errorf("failed to enforce check cap: %w", err)
	}

	return tx.Commit()
}

// RecentConnectionChecks returns up to k checks, newest first.
func (s *Storage) RecentConnectionChecks(k int) ([]ConnectionCheck, error) {
	rows, err := s.db.Query(`
		SELECT api_url, connected, checked_at
		FROM connection_checks ORDER BY checked_at DESC, id DESC LIMIT ?`, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query connection checks: %w", err)
	}
	defer rows.Close()

	checks := []ConnectionCheck{}
	for rows.Next() {
		var c ConnectionCheck
		var connected int
		var checkedAtNano int64
		if err := rows.Scan(&c.APIURL, &connected, &checkedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan connection check: %w", err)
		}
		c.Connected = connected != 0
		c.CheckedAt = time.Unix(0, checkedAtNano)
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
