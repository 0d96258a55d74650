package integration_tests

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/cvsearch/cmd"
	"github.com/rubiojr/cvsearch/pkg/db"
	"github.com/rubiojr/cvsearch/pkg/storage"
)

// outdatedDatabase creates the database under dir with only the first
// embedded migration applied.
func outdatedDatabase(t *testing.T, dir string) {
	t.Helper()

	store, err := storage.Open(filepath.Join(dir, "cvsearch.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer store.Close()

	migrations, err := db.Embedded()
	if err != nil {
		t.Fatalf("loading migrations: %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("expected at least 2 embedded migrations, got %d", len(migrations))
	}

	ctx := context.Background()
	m := db.NewMigrator(store.DB())
	if err := m.EnsureTable(ctx); err != nil {
		t.Fatalf("creating migrations table: %v", err)
	}
	if err := m.Apply(ctx, migrations[0]); err != nil {
		t.Fatalf("applying first migration: %v", err)
	}
}

func cliRoot(configPath string, commands ...*cli.Command) *cli.Command {
	return &cli.Command{
		Name: "cvsearch",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: configPath,
			},
		},
		Commands: commands,
	}
}

func TestServeCommandAbortsOnPendingMigrations(t *testing.T) {
	dir := t.TempDir()
	configPath, err := WriteConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	outdatedDatabase(t, dir)

	root := cliRoot(configPath, cmd.ServeCommand())
	err = root.Run(context.Background(), []string{"cvsearch", "--config", configPath, "serve", "--address", "127.0.0.1:0"})
	if err == nil {
		t.Fatal("expected serve to fail due to pending migrations, but it succeeded")
	}
	if !errors.Is(err, storage.ErrPendingMigrations) {
		t.Fatalf("expected error to wrap ErrPendingMigrations, got: %v", err)
	}
}

func TestSearchCommandAbortsOnPendingMigrations(t *testing.T) {
	dir := t.TempDir()
	configPath, err := WriteConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	outdatedDatabase(t, dir)

	root := cliRoot(configPath, cmd.SearchCommand())
	err = root.Run(context.Background(), []string{"cvsearch", "--config", configPath, "search", "python"})
	if !errors.Is(err, storage.ErrPendingMigrations) {
		t.Fatalf("expected ErrPendingMigrations, got: %v", err)
	}
}

func TestMigrateResolvesPendingMigrations(t *testing.T) {
	dir := t.TempDir()
	configPath, err := WriteConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	outdatedDatabase(t, dir)

	if err := cmd.CheckPendingMigrations(configPath); !errors.Is(err, storage.ErrPendingMigrations) {
		t.Fatalf("expected ErrPendingMigrations before migrating, got: %v", err)
	}

	var out bytes.Buffer
	if err := cmd.RunMigrations(context.Background(), configPath, true, &out); err != nil {
		t.Fatalf("migration status failed: %v", err)
	}
	if !strings.Contains(out.String(), "Applied migrations: 1") {
		t.Errorf("unexpected status output:\n%s", out.String())
	}
	if err := cmd.CheckPendingMigrations(configPath); !errors.Is(err, storage.ErrPendingMigrations) {
		t.Fatalf("status only run must not migrate, got: %v", err)
	}

	out.Reset()
	if err := cmd.RunMigrations(context.Background(), configPath, false, &out); err != nil {
		t.Fatalf("migrating failed: %v", err)
	}
	if !strings.Contains(out.String(), "Applied") {
		t.Errorf("unexpected migrate output:\n%s", out.String())
	}
	if err := cmd.CheckPendingMigrations(configPath); err != nil {
		t.Fatalf("expected no pending migrations after migrating, got: %v", err)
	}
}

func TestCheckPendingMigrationsWithoutDatabase(t *testing.T) {
	configPath, err := WriteConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.CheckPendingMigrations(configPath); err != nil {
		t.Fatalf("expected a missing database to have nothing pending, got: %v", err)
	}
}
