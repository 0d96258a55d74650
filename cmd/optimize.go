package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/cvsearch/pkg/config"
	"github.com/rubiojr/cvsearch/pkg/storage"
)

// maintenanceStep is one database maintenance operation.
type maintenanceStep struct {
	name string
	run  func(*storage.Store) error
}

var (
	stepCheck      = maintenanceStep{"integrity check", (*storage.Store).IntegrityCheck}
	stepAnalyze    = maintenanceStep{"ANALYZE", (*storage.Store).Analyze}
	stepOptimize   = maintenanceStep{"PRAGMA optimize", (*storage.Store).Optimize}
	stepVacuum     = maintenanceStep{"VACUUM", (*storage.Store).Vacuum}
	stepCheckpoint = maintenanceStep{"WAL checkpoint", (*storage.Store).WALCheckpoint}
)

// OptimizeCommand creates the optimize command
func OptimizeCommand() *cli.Command {
	sub := func(name, usage string, steps ...maintenanceStep) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Action: func(ctx context.Context, c *cli.Command) error {
				return runMaintenance(c.String("config"), steps...)
			},
		}
	}

	return &cli.Command{
		Name:  "optimize",
		Usage: "Database optimization and maintenance commands",
		Commands: []*cli.Command{
			sub("check", "Run an integrity check on the database", stepCheck),
			sub("analyze", "Run ANALYZE to update query planner statistics", stepAnalyze),
			sub("vacuum", "Run VACUUM to defragment the database", stepVacuum),
			sub("checkpoint", "Run WAL checkpoint to flush changes", stepCheckpoint),
			sub("all", "Run all optimization operations (analyze, optimize, checkpoint)",
				stepAnalyze, stepOptimize, stepCheckpoint),
		},
	}
}

func runMaintenance(configPath string, steps ...maintenanceStep) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	for _, step := range steps {
		fmt.Printf("Running %s on %s... ", step.name, store.Path())
		if err := step.run(store); err != nil {
			fmt.Printf("✗ FAILED - %v\n", err)
			return fmt.Errorf("%s: %w", step.name, err)
		}
		fmt.Printf("✓ OK\n")
	}
	return nil
}
