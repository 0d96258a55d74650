package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rubiojr/cvsearch/pkg/core"
)

// AppendHistory stores one search history entry and returns its id.
func (s *Store) AppendHistory(ctx context.Context, e core.HistoryEntry) (int64, error) {
	var reason any
	if e.FailureReason != "" {
		reason = e.FailureReason
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO search_history
			(request_id, query, candidate_id, results_count, search_time_ms,
			 searched_at, search_type, outcome, failure_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.RequestID, e.Query, e.CandidateID, e.ResultsCount, e.SearchTimeMs,
		e.SearchedAt.UnixMilli(), e.SearchType, string(e.Outcome), reason)
	if err != nil {
		return 0, fmt.Errorf("inserting search history: %w", err)
	}
	return res.LastInsertId()
}

// ListHistory returns the entries matching filter, newest first.
func (s *Store) ListHistory(ctx context.Context, filter core.HistoryFilter) ([]core.HistoryEntry, error) {
	var conditions []string
	var args []any

	if filter.CandidateID != nil {
		conditions = append(conditions, "candidate_id = ?")
		args = append(args, *filter.CandidateID)
	}
	if filter.From != nil {
		conditions = append(conditions, "searched_at >= ?")
		args = append(args, filter.From.UnixMilli())
	}
	if filter.To != nil {
		conditions = append(conditions, "searched_at <= ?")
		args = append(args, filter.To.UnixMilli())
	}

	query := `
		SELECT id, request_id, query, candidate_id, results_count, search_time_ms,
		       searched_at, search_type, outcome, failure_reason
		FROM search_history`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY searched_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying search history: %w", err)
	}
	defer closeRows(rows)

	var entries []core.HistoryEntry
	for rows.Next() {
		var e core.HistoryEntry
		var candidateID sql.NullInt64
		var searchedAt int64
		var outcome string
		var reason sql.NullString

		err := rows.Scan(&e.ID, &e.RequestID, &e.Query, &candidateID, &e.ResultsCount,
			&e.SearchTimeMs, &searchedAt, &e.SearchType, &outcome, &reason)
		if err != nil {
			return nil, fmt.Errorf("scanning search history row: %w", err)
		}

		if candidateID.Valid {
			e.CandidateID = &candidateID.Int64
		}
		e.SearchedAt = time.UnixMilli(searchedAt).UTC()
		e.Outcome = core.Outcome(outcome)
		e.FailureReason = reason.String
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// SuccessfulQueries calls visit with each distinct successful query other
// than exclude, most used first, until visit returns false. Word matching is
// left to the caller so it can use the same analyzer as the search.
func (s *Store) SuccessfulQueries(ctx context.Context, exclude string, visit func(query string) bool) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, COUNT(*) AS usage_count
		FROM search_history
		WHERE outcome = ? AND query != ?
		GROUP BY query
		ORDER BY usage_count DESC, query`, string(core.OutcomeSuccess), exclude)
	if err != nil {
		return fmt.Errorf("querying successful queries: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var q string
		var n int
		if err := rows.Scan(&q, &n); err != nil {
			return fmt.Errorf("scanning successful query: %w", err)
		}
		if !visit(q) {
			return nil
		}
	}
	return rows.Err()
}
