// Package storage persists pods, streams, records, and rate buckets over
// database/sql. Postgres and sqlite are supported behind the same store;
// queries are written with ? placeholders and rebound for postgres.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type Store struct {
	db      *sql.DB
	dialect string
}

func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, dialect, err := openDatabase(databaseURL)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, dialect: dialect}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an already-open database. Used by tests.
func NewWithDB(ctx context.Context, db *sql.DB, dialect string) (*Store, error) {
	store := &Store{db: db, dialect: dialect}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() string { return s.dialect }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func openDatabase(databaseURL string) (*sql.DB, string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse database url: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "postgres", "postgresql":
		db, err := sql.Open("pgx", databaseURL)
		if err != nil {
			return nil, "", err
		}
		if err := db.Ping(); err != nil {
			return nil, "", err
		}
		return db, DialectPostgres, nil
	case "sqlite", "sqlite3", "file":
		dsn, err := sqliteDSN(databaseURL, parsed)
		if err != nil {
			return nil, "", err
		}
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, "", err
		}
		// sqlite permits one writer; a single pooled connection avoids
		// SQLITE_BUSY under concurrent appends.
		db.SetMaxOpenConns(1)
		if err := db.Ping(); err != nil {
			return nil, "", err
		}
		return db, DialectSQLite, nil
	default:
		return nil, "", fmt.Errorf("unsupported database scheme: %s", scheme)
	}
}

func sqliteDSN(raw string, parsed *url.URL) (string, error) {
	if strings.HasPrefix(raw, "file:") {
		return raw, nil
	}

	pathPart := parsed.Path
	if parsed.Host != "" {
		pathPart = path.Join("/", parsed.Host, parsed.Path)
	}
	if pathPart == "" {
		return "", errors.New("sqlite path missing")
	}

	dsn := "file:" + pathPart
	if parsed.RawQuery != "" {
		dsn += "?" + parsed.RawQuery
	} else {
		dsn += "?cache=shared&mode=rwc"
	}
	return dsn, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	blob := "BLOB"
	if s.dialect == DialectPostgres {
		blob = "BYTEA"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS pod (
			name TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stream (
			id TEXT PRIMARY KEY,
			pod_name TEXT NOT NULL,
			parent_id TEXT,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			user_id TEXT NOT NULL,
			access_permission TEXT NOT NULL,
			metadata TEXT,
			has_schema INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (pod_name, path)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS record (
			id TEXT PRIMARY KEY,
			stream_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			content %s,
			content_type TEXT NOT NULL,
			size INTEGER NOT NULL,
			content_hash TEXT NOT NULL,
			hash TEXT NOT NULL,
			previous_hash TEXT,
			user_id TEXT NOT NULL,
			headers TEXT,
			deleted INTEGER NOT NULL DEFAULT 0,
			purged INTEGER NOT NULL DEFAULT 0,
			storage TEXT,
			created_at TEXT NOT NULL,
			UNIQUE (stream_id, idx)
		)`, blob),
		`CREATE TABLE IF NOT EXISTS rate_limit (
			identifier TEXT NOT NULL,
			action TEXT NOT NULL,
			count INTEGER NOT NULL,
			window_start INTEGER NOT NULL,
			window_end INTEGER NOT NULL,
			PRIMARY KEY (identifier, action, window_start)
		)`,
		// sibling names are unique under a parent; root streams carry a
		// NULL parent_id and are covered by the (pod_name, path) constraint
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_stream_parent ON stream (pod_name, parent_id, name)`,
		`CREATE INDEX IF NOT EXISTS idx_record_name ON record (stream_id, name, idx)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// rebind converts ? placeholders to $n for postgres. Queries in this
// package never contain a literal question mark.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
