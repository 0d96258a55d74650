package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/cvsearch/pkg/config"
	"github.com/rubiojr/cvsearch/pkg/db"
	"github.com/rubiojr/cvsearch/pkg/storage"
)

// MigrateCommand creates the migrate command
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Show migration status without applying migrations",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return RunMigrations(ctx, c.String("config"), c.Bool("status"), os.Stdout)
		},
	}
}

// RunMigrations applies pending migrations, or only reports them when
// statusOnly is set.
func RunMigrations(ctx context.Context, configPath string, statusOnly bool, w io.Writer) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dbPath := cfg.DBPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(w, "Database does not exist, run 'cvsearch init' to create it: %s\n", dbPath)
		return nil
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer closeStore(store)

	migrator := db.NewMigrator(store.DB())
	if statusOnly {
		if err := showMigrationStatus(ctx, migrator, w); err != nil {
			return fmt.Errorf("showing migration status: %w", err)
		}
		return nil
	}

	applied, err := migrator.ApplyPending(ctx)
	if err != nil {
		return fmt.Errorf("migrating %s: %w", dbPath, err)
	}
	if applied == 0 {
		fmt.Fprintln(w, "Database is up to date")
		return nil
	}

	version, err := migrator.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Applied %d migrations to %s (schema version %d)\n", applied, dbPath, version)
	return nil
}

func showMigrationStatus(ctx context.Context, migrator *db.Migrator, w io.Writer) error {
	status, err := migrator.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Applied migrations: %d\n", len(status.Applied))
	for _, m := range status.Applied {
		fmt.Fprintf(w, "  ✓ %03d: %s (applied: %s)\n", m.Version, m.Name, formatTime(*m.AppliedAt))
	}

	fmt.Fprintf(w, "Pending migrations: %d\n", len(status.Pending))
	for _, m := range status.Pending {
		fmt.Fprintf(w, "  • %03d: %s\n", m.Version, m.Name)
	}
	if len(status.Pending) == 0 {
		fmt.Fprintln(w, "  (none - database is up to date)")
	}
	return nil
}
