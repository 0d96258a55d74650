package integration_tests

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rubiojr/cvsearch/pkg/core"
	"github.com/rubiojr/cvsearch/pkg/history"
	"github.com/rubiojr/cvsearch/pkg/search"
	"github.com/rubiojr/cvsearch/pkg/storage"
)

// SampleCandidate is a candidate plus the extracted text of its documents,
// keyed by file name.
type SampleCandidate struct {
	Candidate core.Candidate
	Documents map[string]string
}

// SampleCorpus returns a small corpus whose names and texts carry SQL
// metacharacters.
func SampleCorpus() []SampleCandidate {
	return []SampleCandidate{
		{
			Candidate: core.Candidate{FirstName: "Robert'); DROP TABLE candidates;--", LastName: "Tables", Email: "bobby@example.com"},
			Documents: map[string]string{
				"bobby.pdf": "Python developer. Built a query builder that escapes ' and \" and % safely.",
			},
		},
		{
			Candidate: core.Candidate{FirstName: "Ada", LastName: "O'Brien", Email: "ada@example.com"},
			Documents: map[string]string{
				"ada.pdf":       "Python and Go engineer with PostgreSQL experience",
				"ada-notes.pdf": "Kubernetes operator written in Go",
			},
		},
	}
}

// SeedCorpus stores corpus and returns the new candidate ids in order.
func SeedCorpus(ctx context.Context, store *storage.Store, corpus []SampleCandidate) ([]int64, error) {
	ids := make([]int64, 0, len(corpus))
	for _, sc := range corpus {
		id, err := store.AddCandidate(ctx, sc.Candidate)
		if err != nil {
			return nil, fmt.Errorf("adding candidate %s: %w", sc.Candidate.Name(), err)
		}
		for name, text := range sc.Documents {
			if _, err := store.AddDocument(ctx, storage.NewDocument{CandidateID: id, Filename: name, Text: text}); err != nil {
				return nil, fmt.Errorf("adding document %s: %w", name, err)
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// NewEngine opens a migrated database under dir and wires a recorder and a
// search service over it.
func NewEngine(dir string) (*storage.Store, *history.Recorder, *search.Service, error) {
	store, err := storage.OpenMigrated(filepath.Join(dir, "cvsearch.db"))
	if err != nil {
		return nil, nil, nil, err
	}
	rec := history.NewRecorder(store)
	return store, rec, search.NewService(store, rec), nil
}

// WriteConfig writes a config file keeping the database under dir and
// returns its path.
func WriteConfig(dir string) (string, error) {
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("storage_dir = '%s'\n", dir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}
