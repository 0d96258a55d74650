package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/cvsearch/pkg/config"
	"github.com/rubiojr/cvsearch/pkg/db"
	"github.com/rubiojr/cvsearch/pkg/version"
)

// VersionCommand creates the version command
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "schema",
				Usage: "Also show the schema version of the configured database",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return printVersion(ctx, c.String("config"), c.Bool("schema"), os.Stdout)
		},
	}
}

func printVersion(ctx context.Context, configPath string, withSchema bool, w io.Writer) error {
	fmt.Fprintln(w, version.BuildVersion())
	if !withSchema {
		return nil
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	schema, err := db.NewMigrator(store.DB()).SchemaVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "schema version %d (%s)\n", schema, store.Path())
	return nil
}
