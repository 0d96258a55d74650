// Package db versions the cvsearch schema. Migrations are plain SQL files
// named NNN_name.sql, embedded in the binary and applied in version order,
// each in its own transaction.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/cvsearch/pkg/log"
)

//go:embed migrations/*.sql
var embedded embed.FS

const embeddedDir = "migrations"

var logger = log.ForService("db")

// Migration is one numbered schema change.
type Migration struct {
	Version   int
	Name      string
	SQL       string
	AppliedAt *time.Time
}

// Status splits the known migrations by state.
type Status struct {
	Applied   []Migration
	Pending   []Migration
	Available []Migration
}

// Migrator applies migrations to one database.
type Migrator struct {
	db     *sql.DB
	source fs.FS
	dir    string
}

// NewMigrator uses the migrations embedded in the binary.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db, source: embedded, dir: embeddedDir}
}

// NewMigratorFS reads migrations from dir in source instead.
func NewMigratorFS(db *sql.DB, source fs.FS, dir string) *Migrator {
	return &Migrator{db: db, source: source, dir: dir}
}

// Embedded returns the migrations shipped with the binary.
func Embedded() ([]Migration, error) {
	return load(embedded, embeddedDir)
}

// Migrate brings db up to the embedded schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := NewMigrator(db).ApplyPending(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// EnsureTable creates the bookkeeping table.
func (m *Migrator) EnsureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}
	return nil
}

// Applied maps every applied version to the time it was applied.
func (m *Migrator) Applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warnf("failed to close rows: %v", err)
		}
	}()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		applied[version] = at
	}
	return applied, rows.Err()
}

// Available lists the migrations of the source, lowest version first.
func (m *Migrator) Available() ([]Migration, error) {
	return load(m.source, m.dir)
}

// load reads every NNN_name.sql file in dir; other files are ignored.
func load(source fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(source, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	var migrations []Migration
	for _, entry := range entries {
		base, isSQL := strings.CutSuffix(entry.Name(), ".sql")
		if entry.IsDir() || !isSQL {
			continue
		}
		num, name, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(num)
		if err != nil || version <= 0 {
			continue
		}

		body, err := fs.ReadFile(source, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(body)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d (%s, %s)",
				migrations[i].Version, migrations[i-1].Name, migrations[i].Name)
		}
	}
	return migrations, nil
}

// Pending lists the available migrations not applied yet.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return status.Pending, nil
}

// Apply runs one migration and records it in the same transaction.
func (m *Migrator) Apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logger.Warnf("failed to rollback migration %d: %v", mig.Version, err)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return fmt.Errorf("executing migration %d: %w", mig.Version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES (?, ?)", mig.Version, mig.Name); err != nil {
		return fmt.Errorf("recording migration %d: %w", mig.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", mig.Version, err)
	}

	committed = true
	return nil
}

// ApplyPending applies every pending migration in order and returns how many
// succeeded. It stops at the first failure.
func (m *Migrator) ApplyPending(ctx context.Context) (int, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}

	for i, mig := range pending {
		logger.Infof("applying migration %03d: %s", mig.Version, mig.Name)
		if err := m.Apply(ctx, mig); err != nil {
			return i, fmt.Errorf("applying migration %d (%s): %w", mig.Version, mig.Name, err)
		}
	}
	return len(pending), nil
}

// Status creates the bookkeeping table if needed and reports which
// migrations are applied.
func (m *Migrator) Status(ctx context.Context) (*Status, error) {
	if err := m.EnsureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	available, err := m.Available()
	if err != nil {
		return nil, err
	}

	status := &Status{Applied: []Migration{}, Pending: []Migration{}, Available: available}
	for _, mig := range available {
		if at, ok := applied[mig.Version]; ok {
			mig.AppliedAt = &at
			status.Applied = append(status.Applied, mig)
		} else {
			status.Pending = append(status.Pending, mig)
		}
	}
	return status, nil
}

// SchemaVersion returns the highest applied version, 0 for an empty
// database.
func (m *Migrator) SchemaVersion(ctx context.Context) (int, error) {
	if err := m.EnsureTable(ctx); err != nil {
		return 0, err
	}
	var version int
	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}
