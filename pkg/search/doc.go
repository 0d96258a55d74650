// Package search runs ranked full-text searches over candidate documents.
//
// # Overview
//
// A Service ties the pieces of the engine together:
//
//   - query.Parse turns the raw string into terms, phrases and exclusions
//   - a DocumentSource supplies the corpus, optionally restricted to one candidate
//   - rank.Scorer scores every document and drops those that do not match
//   - rank.Highlighter extracts snippets, for the returned page only
//   - a Recorder stores the outcome in the search history and proposes
//     related queries
//
// Results are ordered by relevance score, highest first, with ties broken by
// ascending document id. The same query over the same corpus always yields the
// same order, so paging through a result set with Offset never skips or
// repeats a document.
//
// # Usage
//
//	svc := search.NewService(store, recorder)
//	req := search.NewRequest(`"site reliability" kubernetes -junior`)
//	req.Limit = 10
//	resp, err := svc.Search(ctx, req)
//	if err != nil {
//		switch core.KindOf(err) {
//		case core.KindInvalidQuery, core.KindInvalidRequest:
//			// bad input
//		}
//	}
//
// Quick searches skip highlighting and return a flat list:
//
//	hits, err := svc.QuickSearch(ctx, "golang", nil, 5)
//
// # Concurrency
//
// Service is safe for concurrent use. Options are swapped atomically with
// SetOptions and each search works on the snapshot taken when it started.
// When built WithPool, corpora larger than Options.ParallelThreshold are
// scored on the ants worker pool.
package search
