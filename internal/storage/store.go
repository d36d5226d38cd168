// Package storage is the durable store of the memory graph and of the
// provider/Ansible schema registry. It owns every row; the graph and version
// packages only read through Reader snapshots.
package storage

import (
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
)

// timeLayout keeps stored timestamps fixed-width so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store manages the memory database.
//
// Writes are serialized by writeMu and run in one transaction each, so a
// multi-row mutation commits or rolls back as a unit. Reads never take
// writeMu: WAL mode gives each read transaction a consistent snapshot.
type Store struct {
	db      *sql.DB
	log     *zap.SugaredLogger
	writeMu sync.Mutex
	now     func() time.Time
}

// Open opens (or creates) the database file at path and applies the schema.
// A nil logger keeps the store silent.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log.Debugw("Opening memory database", "path", path)

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, errors.Storage(err, "open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Storage(err, "ping database")
	}
	s, err := New(db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	log.Infow("Memory database ready", "path", path)
	return s, nil
}

// New wraps an already-open handle without touching its schema.
func New(db *sql.DB, log *zap.SugaredLogger) (*Store, error) {
	if db == nil {
		return nil, errors.Validationf("nil database handle")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{db: db, log: log, now: time.Now}, nil
}

func dsn(path string) string {
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + dsnPragmas
	}
	return "file:" + path + "?" + dsnPragmas
}

func (s *Store) migrate() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.db.Exec(Schema); err != nil {
		return errors.Storage(err, "create schema")
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// write runs fn in a serialized transaction. Typed errors returned by fn
// pass through unchanged; anything else is reported as a storage failure.
func (s *Store) write(op string, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Storage(err, "begin "+op)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if errors.Kind(err) == errors.KindStorage || errors.Kind(err) == errors.KindInternal {
			s.log.Warnw("Write failed", "operation", op, "error", err)
		}
		return errors.Storage(err, op)
	}
	if err := tx.Commit(); err != nil {
		s.log.Warnw("Commit failed", "operation", op, "error", err)
		return errors.Storage(err, "commit "+op)
	}
	return nil
}

// View runs fn against a read-only snapshot of the database.
func (s *Store) View(fn func(r *Reader) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Storage(err, "begin read")
	}
	defer tx.Rollback()

	if err := fn(&Reader{q: tx}); err != nil {
		return errors.Storage(err, "read")
	}
	return nil
}

// Reader returns a reader over the live database, without a snapshot.
// Single-statement reads do not need one.
func (s *Store) Reader() *Reader {
	return &Reader{q: s.db}
}

// stamp returns the current time in UTC.
func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

func newID() string {
	return uuid.New().String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
