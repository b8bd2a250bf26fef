// Package store persists the keyword corpus, tracked books, advertising
// records, and scoring history in SQLite.
//
// All lookups the pipeline needs are by (keyword, department) or by time
// range; both are covered by indexes. Every write method normalizes keyword
// text to lowercase trimmed form so joins across signal sources line up.
package store

import (
	"database/sql"
	"embed"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the SQLite connection.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Use ":memory:" for an ephemeral database in tests.
func Open(path string, log *logger.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.StorageError("creating database directory", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.StorageError("opening database", err)
	}

	// An in-memory database exists per connection, so the pool must not
	// fan out. On-disk SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.StorageError("pinging database", err)
	}

	s := &Store{db: db, log: log}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// migrateUp applies embedded migrations on the live connection, so it works
// for in-memory databases too.
func (s *Store) migrateUp() error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return errors.StorageError("reading embedded migrations", err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return errors.StorageError("creating migration source", err)
	}
	driver, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	if err != nil {
		return errors.StorageError("creating migration driver", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return errors.StorageError("creating migrator", err)
	}
	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.StorageError("applying migrations", err)
	}

	s.log.Debug("database migrations applied")
	return nil
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for ad-hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// normalizeKeyword is the canonical keyword form used for all joins.
func normalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Timestamps are stored as RFC 3339 text so comparisons sort correctly.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// scanTime tolerates both TEXT and native time storage.
type scanTime struct {
	t time.Time
}

func (st *scanTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		st.t = v
		return nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return err
		}
		st.t = parsed
		return nil
	case []byte:
		parsed, err := time.Parse(time.RFC3339Nano, string(v))
		if err != nil {
			return err
		}
		st.t = parsed
		return nil
	case nil:
		st.t = time.Time{}
		return nil
	default:
		return errors.StorageError("unsupported timestamp column type", nil)
	}
}
