package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/cvsearch/pkg/config"
	"github.com/rubiojr/cvsearch/pkg/storage"
)

// InitCommand creates the init command
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a configuration template and create the database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing configuration file",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return initialize(c.String("config"), c.Bool("force"))
		},
	}
}

// initialize writes the configuration template unless one exists, then
// creates and migrates the database it points to.
func initialize(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Printf("Configuration already exists at %s (use --force to overwrite)\n", configPath)
	} else {
		cfg, err := config.GetDefaultConfig()
		if err != nil {
			return fmt.Errorf("getting default config: %w", err)
		}
		if err := cfg.SaveTemplateConfig(configPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Configuration initialized at %s\n", configPath)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dbPath := cfg.DBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	store, err := storage.OpenMigrated(dbPath)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer closeStore(store)

	fmt.Printf("Database ready at %s\n", dbPath)
	return nil
}
