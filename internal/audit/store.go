// Package audit records dashboard logins in a small sqlite database.
package audit

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrEmptyUsername is returned by RecordLogin for a blank username.
var ErrEmptyUsername = errors.New("username is required")

// Login is the last recorded login of one user.
type Login struct {
	Username  string    `json:"username"`
	LoginTime time.Time `json:"login_time"`
}

// Store records dashboard logins in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at dbPath and applies the
// embedded migrations.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs migrations/*.sql in file name order.
func (s *Store) migrate(ctx context.Context) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		raw, err := migrationFS.ReadFile(path.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(raw)); err != nil {
			return fmt.Errorf("exec migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// RecordLogin creates the user on first login and refreshes the login
// time afterwards.
func (s *Store) RecordLogin(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}
	now := s.now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users(username, login_time)
		VALUES(?, ?)
		ON CONFLICT(username) DO UPDATE SET login_time=excluded.login_time
	`, username, now)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// Logins lists every recorded user ordered by username.
func (s *Store) Logins(ctx context.Context) ([]Login, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, login_time
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("query logins: %w", err)
	}
	defer rows.Close()

	var out []Login
	for rows.Next() {
		var (
			l   Login
			raw string
		)
		if err := rows.Scan(&l.Username, &raw); err != nil {
			return nil, fmt.Errorf("scan login: %w", err)
		}
		l.LoginTime, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("parse login time %q: %w", raw, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
