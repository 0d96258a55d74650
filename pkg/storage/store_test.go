package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/cvsearch/pkg/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMigrated(filepath.Join(t.TempDir(), "cvsearch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store) (alice, bob int64) {
	t.Helper()
	ctx := context.Background()

	var err error
	alice, err = s.AddCandidate(ctx, core.Candidate{FirstName: "Alice", LastName: "Smith", Email: "alice@example.com"})
	require.NoError(t, err)
	bob, err = s.AddCandidate(ctx, core.Candidate{FirstName: "Bob", LastName: "Jones"})
	require.NoError(t, err)

	size := int64(2048)
	_, err = s.AddDocument(ctx, NewDocument{CandidateID: alice, Filename: "alice.pdf", FileSize: &size, Text: "golang kubernetes engineer"})
	require.NoError(t, err)
	_, err = s.AddDocument(ctx, NewDocument{CandidateID: alice, Filename: "alice-cover.pdf"})
	require.NoError(t, err)
	_, err = s.AddDocument(ctx, NewDocument{CandidateID: bob, Filename: "bob.pdf", Text: "java spring developer"})
	require.NoError(t, err)
	return alice, bob
}

func TestOpenRequiresMigrations(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.CheckMigrations(), ErrPendingMigrations)

	migrated := newTestStore(t)
	assert.NoError(t, migrated.CheckMigrations())
}

func TestCandidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice, _ := seed(t, s)

	ok, err := s.CandidateExists(ctx, alice)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CandidateExists(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, ok)

	c, err := s.GetCandidate(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", c.Name())
	assert.Equal(t, "alice@example.com", c.Email)
	assert.False(t, c.CreatedAt.IsZero())

	found, err := s.FindCandidateByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice, found.ID)

	_, err = s.GetCandidate(ctx, 9999)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.FindCandidateByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFetchDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice, bob := seed(t, s)

	all, err := s.FetchDocuments(ctx, core.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Alice Smith", all[0].CandidateName)
	assert.Equal(t, "golang kubernetes engineer", all[0].ExtractedText)
	require.NotNil(t, all[0].FileSize)
	assert.Equal(t, int64(2048), *all[0].FileSize)
	assert.NotNil(t, all[0].ExtractedAt)
	assert.False(t, all[1].HasText())
	assert.Nil(t, all[1].ExtractedAt)

	extracted, err := s.FetchDocuments(ctx, core.DocumentFilter{ExtractedOnly: true})
	require.NoError(t, err)
	assert.Len(t, extracted, 2)

	forBob, err := s.FetchDocuments(ctx, core.DocumentFilter{CandidateID: &bob})
	require.NoError(t, err)
	require.Len(t, forBob, 1)
	assert.Equal(t, "bob.pdf", forBob[0].Filename)

	forAlice, err := s.FetchDocuments(ctx, core.DocumentFilter{CandidateID: &alice, ExtractedOnly: true})
	require.NoError(t, err)
	assert.Len(t, forAlice, 1)
}

func TestSetExtractedText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice, _ := seed(t, s)

	docs, err := s.FetchDocuments(ctx, core.DocumentFilter{CandidateID: &alice})
	require.NoError(t, err)
	require.False(t, docs[1].HasText())

	require.NoError(t, s.SetExtractedText(ctx, docs[1].ID, "cover letter about rust", time.Time{}))

	docs, err = s.FetchDocuments(ctx, core.DocumentFilter{CandidateID: &alice, ExtractedOnly: true})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestSoftDeleteDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, bob := seed(t, s)

	docs, err := s.FetchDocuments(ctx, core.DocumentFilter{CandidateID: &bob})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.NoError(t, s.SoftDeleteDocument(ctx, docs[0].ID))
	assert.ErrorIs(t, s.SoftDeleteDocument(ctx, docs[0].ID), core.ErrNotFound)

	docs, err = s.FetchDocuments(ctx, core.DocumentFilter{CandidateID: &bob})
	require.NoError(t, err)
	assert.Empty(t, docs)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Candidates)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 1, stats.ExtractedDocuments)
	assert.Equal(t, 1, stats.DeletedDocuments)
}

func TestHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice, _ := seed(t, s)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []core.HistoryEntry{
		{RequestID: "1", Query: "golang", ResultsCount: 3, SearchTimeMs: 4, SearchedAt: base, SearchType: core.SearchTypeContent, Outcome: core.OutcomeSuccess},
		{RequestID: "2", Query: "golang kubernetes", ResultsCount: 1, SearchTimeMs: 6, SearchedAt: base.Add(time.Hour), SearchType: core.SearchTypeContent, Outcome: core.OutcomeSuccess},
		{RequestID: "3", Query: "golang kubernetes", CandidateID: &alice, SearchedAt: base.Add(2 * time.Hour), SearchType: core.SearchTypeQuick, Outcome: core.OutcomeSuccess},
		{RequestID: "4", Query: "golang rust", SearchedAt: base.Add(3 * time.Hour), SearchType: core.SearchTypeContent, Outcome: core.OutcomeFailure, FailureReason: "fetch failure: disk I/O error"},
	}
	for _, e := range entries {
		_, err := s.AppendHistory(ctx, e)
		require.NoError(t, err)
	}

	all, err := s.ListHistory(ctx, core.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "4", all[0].RequestID, "newest first")
	assert.Equal(t, core.OutcomeFailure, all[0].Outcome)
	assert.Equal(t, "fetch failure: disk I/O error", all[0].FailureReason)
	assert.True(t, base.Add(3*time.Hour).Equal(all[0].SearchedAt))

	limited, err := s.ListHistory(ctx, core.HistoryFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	byCandidate, err := s.ListHistory(ctx, core.HistoryFilter{CandidateID: &alice})
	require.NoError(t, err)
	require.Len(t, byCandidate, 1)
	assert.Equal(t, alice, *byCandidate[0].CandidateID)

	from, to := base.Add(30*time.Minute), base.Add(2*time.Hour)
	window, err := s.ListHistory(ctx, core.HistoryFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	var successful []string
	err = s.SuccessfulQueries(ctx, "", func(q string) bool {
		successful = append(successful, q)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"golang kubernetes", "golang"}, successful, "most used first, failures skipped")

	var excluded []string
	err = s.SuccessfulQueries(ctx, "golang kubernetes", func(q string) bool {
		excluded = append(excluded, q)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"golang"}, excluded)

	visits := 0
	err = s.SuccessfulQueries(ctx, "", func(string) bool {
		visits++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, visits, "the walk stops when visit returns false")
}

func TestConcurrentHistoryAppends(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AppendHistory(ctx, core.HistoryEntry{
				RequestID:  "concurrent",
				Query:      "golang",
				SearchedAt: time.Now(),
				SearchType: core.SearchTypeContent,
				Outcome:    core.OutcomeSuccess,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := s.ListHistory(ctx, core.HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 40)
}

func TestFetchDocumentsCancelled(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.FetchDocuments(ctx, core.DocumentFilter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMaintenance(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	assert.NoError(t, s.IntegrityCheck())
	assert.NoError(t, s.Analyze())
	assert.NoError(t, s.Optimize())
	assert.NoError(t, s.WALCheckpoint())
	assert.NoError(t, s.Vacuum())

	st, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 3, st.Documents)
}
