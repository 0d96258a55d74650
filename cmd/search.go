package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/cvsearch/pkg/search"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search candidate documents",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "candidate",
				Usage: "Restrict the search to one candidate id",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Results per page, defaults to the configured page size",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Page to show, starting at 1",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "highlight-length",
				Usage: "Snippet context in characters, defaults to the configured length",
			},
			&cli.BoolFlag{
				Name:  "no-highlights",
				Usage: "Do not extract snippets",
			},
			&cli.BoolFlag{
				Name:  "include-unextracted",
				Usage: "Also consider documents that were never extracted",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the raw JSON response",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			candidateID, err := parseCandidateID(c.String("candidate"))
			if err != nil {
				return err
			}

			req := search.NewRequest(strings.Join(c.Args().Slice(), " "))
			req.CandidateID = candidateID
			for _, name := range []string{"limit", "highlight-length"} {
				if c.IsSet(name) && c.Int(name) == 0 {
					return fmt.Errorf("--%s must not be zero, omit it for the default", name)
				}
			}
			req.Limit = c.Int("limit")
			req.HighlightLength = c.Int("highlight-length")
			req.IncludeHighlights = !c.Bool("no-highlights")
			req.ExtractedOnly = !c.Bool("include-unextracted")

			return runSearch(ctx, c.String("config"), req, c.Int("page"), c.Bool("json"), os.Stdout)
		},
	}
}

// QuickCommand creates the quick command
func QuickCommand() *cli.Command {
	return &cli.Command{
		Name:      "quick",
		Usage:     "Quick search returning only file names and scores",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "candidate",
				Usage: "Restrict the search to one candidate id",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results, defaults to the configured quick limit",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the raw JSON response",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			candidateID, err := parseCandidateID(c.String("candidate"))
			if err != nil {
				return err
			}
			if c.IsSet("limit") && c.Int("limit") == 0 {
				return fmt.Errorf("--limit must not be zero, omit it for the default")
			}
			query := strings.Join(c.Args().Slice(), " ")
			return runQuick(ctx, c.String("config"), query, candidateID, c.Int("limit"), c.Bool("json"), os.Stdout)
		},
	}
}

func runSearch(ctx context.Context, configPath string, req search.Request, page int, asJSON bool, w io.Writer) error {
	e, err := loadEngine(configPath, engineOptions{})
	if err != nil {
		return err
	}
	defer e.close()

	if page > 1 {
		limit := req.Limit
		if limit == 0 {
			limit = e.search.Options().DefaultLimit
		}
		req.Offset = (page - 1) * limit
	}

	resp, err := e.search.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if asJSON {
		return writeJSON(w, resp)
	}
	renderSearch(w, resp)
	return nil
}

func runQuick(ctx context.Context, configPath, query string, candidateID *int64, limit int, asJSON bool, w io.Writer) error {
	e, err := loadEngine(configPath, engineOptions{})
	if err != nil {
		return err
	}
	defer e.close()

	results, err := e.search.QuickSearch(ctx, query, candidateID, limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if asJSON {
		return writeJSON(w, results)
	}
	renderQuick(w, query, results)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
