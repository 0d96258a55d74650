package integration_tests

import (
	"context"
	"sync"
	"testing"

	"github.com/rubiojr/cvsearch/pkg/search"
)

func TestConcurrentSearchesRecordEveryEntry(t *testing.T) {
	ctx := context.Background()
	store, rec, svc, err := NewEngine(t.TempDir())
	if err != nil {
		t.Fatalf("opening engine: %v", err)
	}
	defer store.Close()

	if _, err := SeedCorpus(ctx, store, SampleCorpus()); err != nil {
		t.Fatalf("seeding corpus: %v", err)
	}

	const searches = 20
	var wg sync.WaitGroup
	errs := make(chan error, searches)
	for i := 0; i < searches; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Search(ctx, search.NewRequest("python"))
			if err != nil {
				errs <- err
				return
			}
			if resp.TotalResults != 2 {
				t.Errorf("expected 2 results, got %d", resp.TotalResults)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent search failed: %v", err)
	}

	entries, err := rec.Recent(ctx, nil, searches*2)
	if err != nil {
		t.Fatalf("reading history: %v", err)
	}
	if len(entries) != searches {
		t.Errorf("expected %d history entries, got %d", searches, len(entries))
	}

	stats, err := rec.Statistics(ctx, nil)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalSearches != searches || stats.UniqueQueries != 1 {
		t.Errorf("unexpected statistics: total %d, unique %d", stats.TotalSearches, stats.UniqueQueries)
	}
}
