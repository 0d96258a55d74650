// Package storage persists the candidate corpus and the search history in a
// single SQLite database (github.com/ncruces/go-sqlite3).
//
// Store implements both search.DocumentSource and history.Store. Concurrent
// writers are serialized by SQLite itself (WAL journal plus busy_timeout), so
// no in-process locking is involved.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/rubiojr/cvsearch/pkg/db"
	"github.com/rubiojr/cvsearch/pkg/log"
)

// ErrPendingMigrations is returned by CheckMigrations when the schema is not
// up to date.
var ErrPendingMigrations = errors.New("pending migrations")

var logger = log.ForService("storage")

// Store is the SQLite backed corpus and history store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at dbPath and applies the
// performance pragmas. It does not migrate the schema.
func Open(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = memory",
		"PRAGMA mmap_size = 268435456", // 256MB mmap
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	return &Store{db: conn, path: dbPath}, nil
}

// dsn builds a file: URI carrying the pragmas every pooled connection needs.
// Write transactions start IMMEDIATE so concurrent writers queue on
// busy_timeout instead of failing on lock upgrade.
func dsn(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(30000)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	u := url.URL{Scheme: "file", OmitHost: true, Path: dbPath, RawQuery: q.Encode()}
	return u.String()
}

// OpenMigrated opens the database and brings its schema up to date.
func OpenMigrated(dbPath string) (*Store, error) {
	s, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(context.Background(), s.db); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for migrations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CheckMigrations fails with ErrPendingMigrations when the schema is behind
// the embedded migration set.
func (s *Store) CheckMigrations() error {
	pending, err := db.NewMigrator(s.db).Pending(context.Background())
	if err != nil {
		return fmt.Errorf("checking migrations: %w", err)
	}
	if len(pending) > 0 {
		return fmt.Errorf("%w: %d migrations not applied to %s, run 'cvsearch migrate'", ErrPendingMigrations, len(pending), s.path)
	}
	return nil
}

// Stats summarizes the database content.
type Stats struct {
	Candidates         int `json:"candidates"`
	Documents          int `json:"documents"`
	ExtractedDocuments int `json:"extracted_documents"`
	DeletedDocuments   int `json:"deleted_documents"`
	HistoryEntries     int `json:"history_entries"`
}

// GetStats counts the rows of every table.
func (s *Store) GetStats() (*Stats, error) {
	var st Stats
	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM candidates", &st.Candidates},
		{"SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL", &st.Documents},
		{`SELECT COUNT(*) FROM documents d JOIN document_content c ON c.document_id = d.id
		  WHERE d.deleted_at IS NULL`, &st.ExtractedDocuments},
		{"SELECT COUNT(*) FROM documents WHERE deleted_at IS NOT NULL", &st.DeletedDocuments},
		{"SELECT COUNT(*) FROM search_history", &st.HistoryEntries},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("counting rows: %w", err)
		}
	}
	return &st, nil
}

// IntegrityCheck runs PRAGMA integrity_check and fails unless SQLite reports
// "ok".
func (s *Store) IntegrityCheck() error {
	var result string
	if err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("running integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Analyze refreshes the query planner statistics.
func (s *Store) Analyze() error {
	_, err := s.db.Exec("ANALYZE")
	return err
}

func (s *Store) Optimize() error {
	_, err := s.db.Exec("PRAGMA optimize")
	return err
}

func (s *Store) Vacuum() error {
	_, err := s.db.Exec("VACUUM")
	return err
}

func (s *Store) WALCheckpoint() error {
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// closeRows closes rows, logging any failure.
func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.Warnf("failed to close rows: %v", err)
	}
}
