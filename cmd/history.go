package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// HistoryCommand creates the history command
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent searches, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "candidate",
				Usage: "Only show searches restricted to this candidate id",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries (0 for the configured default)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the raw JSON entries",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			candidateID, err := parseCandidateID(c.String("candidate"))
			if err != nil {
				return err
			}
			return showHistory(ctx, c.String("config"), candidateID, c.Int("limit"), c.Bool("json"), os.Stdout)
		},
	}
}

func showHistory(ctx context.Context, configPath string, candidateID *int64, limit int, asJSON bool, w io.Writer) error {
	e, err := loadEngine(configPath, engineOptions{})
	if err != nil {
		return err
	}
	defer e.close()

	entries, err := e.recorder.Recent(ctx, candidateID, limit)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}

	if asJSON {
		return writeJSON(w, entries)
	}
	renderHistory(w, entries)
	return nil
}
