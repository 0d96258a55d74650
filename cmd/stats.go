package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/cvsearch/pkg/core"
)

const dateLayout = "2006-01-02"

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show corpus and search statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from",
				Usage: "First day of the window (YYYY-MM-DD, UTC)",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Last day of the window (YYYY-MM-DD, UTC)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the raw JSON statistics",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			window, err := parseDateWindow(c.String("from"), c.String("to"))
			if err != nil {
				return err
			}
			return showStats(ctx, c.String("config"), window, c.Bool("json"), os.Stdout)
		},
	}
}

func showStats(ctx context.Context, configPath string, window *core.DateRange, asJSON bool, w io.Writer) error {
	e, err := loadEngine(configPath, engineOptions{})
	if err != nil {
		return err
	}
	defer e.close()

	stats, err := e.recorder.Statistics(ctx, window)
	if err != nil {
		return fmt.Errorf("computing statistics: %w", err)
	}

	if asJSON {
		return writeJSON(w, stats)
	}

	dbStats, err := e.store.GetStats()
	if err != nil {
		return fmt.Errorf("getting database stats: %w", err)
	}
	renderStatistics(w, stats, dbStats)
	return nil
}

// parseDateWindow turns inclusive YYYY-MM-DD bounds into a window; both empty
// means no window.
func parseDateWindow(from, to string) (*core.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}

	window := &core.DateRange{}
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return nil, fmt.Errorf("invalid --from date %q: %w", from, err)
		}
		window.From = &t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return nil, fmt.Errorf("invalid --to date %q: %w", to, err)
		}
		end := t.Add(24*time.Hour - time.Millisecond)
		window.To = &end
	}
	return window, nil
}
