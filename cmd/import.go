package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/rubiojr/cvsearch/pkg/config"
	"github.com/rubiojr/cvsearch/pkg/core"
	"github.com/rubiojr/cvsearch/pkg/storage"
)

// Manifest describes a batch import, one entry per candidate. Relative file
// paths are resolved against the manifest's directory.
type Manifest struct {
	Candidates []ManifestCandidate `toml:"candidates"`
}

type ManifestCandidate struct {
	FirstName string   `toml:"first_name"`
	LastName  string   `toml:"last_name"`
	Email     string   `toml:"email"`
	Files     []string `toml:"files"`
}

// ImportCommand creates the import command
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load extracted document text (.txt or .zst) into the corpus",
		ArgsUsage: "[FILE|DIR]...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "manifest",
				Usage: "TOML manifest listing candidates and their files",
			},
			&cli.StringFlag{
				Name:  "candidate",
				Usage: "Attach the files to an existing candidate id",
			},
			&cli.StringFlag{
				Name:  "first-name",
				Usage: "First name of the candidate to create",
			},
			&cli.StringFlag{
				Name:  "last-name",
				Usage: "Last name of the candidate to create",
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "Candidate email; an existing candidate with this email is reused",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			imp := &importer{store: store, out: os.Stdout}

			if path := c.String("manifest"); path != "" {
				return imp.importManifest(ctx, path)
			}

			candidateID, err := parseCandidateID(c.String("candidate"))
			if err != nil {
				return err
			}
			entry := ManifestCandidate{
				FirstName: c.String("first-name"),
				LastName:  c.String("last-name"),
				Email:     c.String("email"),
				Files:     c.Args().Slice(),
			}
			return imp.importCandidate(ctx, candidateID, entry, "")
		},
	}
}

type importer struct {
	store *storage.Store
	out   io.Writer
}

func (imp *importer) importManifest(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(m.Candidates) == 0 {
		return fmt.Errorf("manifest %s lists no candidates", path)
	}

	base := filepath.Dir(path)
	for _, entry := range m.Candidates {
		if err := imp.importCandidate(ctx, nil, entry, base); err != nil {
			return err
		}
	}
	return nil
}

// importCandidate resolves the candidate, then adds one document per text
// file found in entry.Files.
func (imp *importer) importCandidate(ctx context.Context, candidateID *int64, entry ManifestCandidate, base string) error {
	paths := make([]string, len(entry.Files))
	for i, f := range entry.Files {
		if base != "" && !filepath.IsAbs(f) {
			f = filepath.Join(base, f)
		}
		paths[i] = f
	}

	files, err := collectTextFiles(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .txt or .zst files to import for %s", candidateLabel(entry))
	}

	cand, err := imp.resolveCandidate(ctx, candidateID, entry)
	if err != nil {
		return err
	}

	for _, f := range files {
		text, err := readText(f)
		if err != nil {
			return err
		}
		info, err := os.Stat(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f, err)
		}

		id, err := imp.store.AddDocument(ctx, storage.NewDocument{
			CandidateID: cand.ID,
			Filename:    documentName(f),
			UploadedAt:  info.ModTime().UTC(),
			Text:        text,
		})
		if err != nil {
			return fmt.Errorf("importing %s: %w", f, err)
		}
		fmt.Fprintf(imp.out, "✓ %s → document %d (%s)\n", f, id, cand.Name())
	}
	return nil
}

func (imp *importer) resolveCandidate(ctx context.Context, candidateID *int64, entry ManifestCandidate) (*core.Candidate, error) {
	if candidateID != nil {
		c, err := imp.store.GetCandidate(ctx, *candidateID)
		if err != nil {
			return nil, fmt.Errorf("looking up candidate: %w", err)
		}
		return c, nil
	}

	if entry.Email != "" {
		c, err := imp.store.FindCandidateByEmail(ctx, entry.Email)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("looking up candidate: %w", err)
		}
	}

	if entry.FirstName == "" && entry.LastName == "" {
		return nil, fmt.Errorf("a candidate id or name is required")
	}

	c := core.Candidate{FirstName: entry.FirstName, LastName: entry.LastName, Email: entry.Email}
	id, err := imp.store.AddCandidate(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("creating candidate: %w", err)
	}
	c.ID = id
	fmt.Fprintf(imp.out, "Created candidate %d (%s)\n", id, c.Name())
	return &c, nil
}

func candidateLabel(entry ManifestCandidate) string {
	if name := strings.TrimSpace(entry.FirstName + " " + entry.LastName); name != "" {
		return name
	}
	if entry.Email != "" {
		return entry.Email
	}
	return "candidate"
}

// isTextFile reports whether path holds extracted text, plain or zstd
// compressed.
func isTextFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".txt" || ext == ".zst"
}

// collectTextFiles expands directories into the text files they contain,
// sorted by path. Files given explicitly are kept whatever their extension.
func collectTextFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isTextFile(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// readText returns the UTF-8 content of path, decompressing .zst files.
func readText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.EqualFold(filepath.Ext(path), ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("opening zstd stream %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", path)
	}
	return strings.TrimSpace(string(data)), nil
}

// documentName derives the original file name from an extracted text file:
// "cv.pdf.txt.zst" becomes "cv.pdf".
func documentName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".zst", ".txt"} {
		if strings.EqualFold(filepath.Ext(name), ext) && len(name) > len(ext) {
			name = name[:len(name)-len(ext)]
		}
	}
	return name
}
