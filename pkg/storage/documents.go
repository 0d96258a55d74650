package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rubiojr/cvsearch/pkg/core"
)

// AddCandidate inserts c and returns its id. A zero CreatedAt is set to now.
func (s *Store) AddCandidate(ctx context.Context, c core.Candidate) (int64, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	var email any
	if c.Email != "" {
		email = c.Email
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO candidates (first_name, last_name, email, created_at)
		VALUES (?, ?, ?, ?)
	`, c.FirstName, c.LastName, email, c.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("inserting candidate %q: %w", c.Name(), err)
	}
	return res.LastInsertId()
}

// GetCandidate returns the candidate with id, or core.ErrNotFound.
func (s *Store) GetCandidate(ctx context.Context, id int64) (*core.Candidate, error) {
	return s.scanCandidate(s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, created_at FROM candidates WHERE id = ?
	`, id), fmt.Sprintf("candidate with ID %d", id))
}

// FindCandidateByEmail returns the candidate with email, or core.ErrNotFound.
func (s *Store) FindCandidateByEmail(ctx context.Context, email string) (*core.Candidate, error) {
	return s.scanCandidate(s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, created_at FROM candidates WHERE email = ?
	`, email), fmt.Sprintf("candidate with email %q", email))
}

func (s *Store) scanCandidate(row *sql.Row, what string) (*core.Candidate, error) {
	var c core.Candidate
	var email sql.NullString
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &email, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, what)
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", what, err)
	}
	c.Email = email.String
	return &c, nil
}

// CandidateExists reports whether a candidate with id exists.
func (s *Store) CandidateExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM candidates WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying candidate %d: %w", id, err)
	}
	return true, nil
}

// NewDocument describes a document to add. An empty Text leaves the document
// unextracted.
type NewDocument struct {
	CandidateID int64
	Filename    string
	FileSize    *int64
	UploadedAt  time.Time
	Text        string
	ExtractedAt time.Time
}

// AddDocument inserts a document and, when it carries text, its extracted
// content in the same transaction.
func (s *Store) AddDocument(ctx context.Context, d NewDocument) (int64, error) {
	now := time.Now().UTC()
	if d.UploadedAt.IsZero() {
		d.UploadedAt = now
	}
	if d.ExtractedAt.IsZero() {
		d.ExtractedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logger.Warnf("failed to rollback transaction: %v", err)
			}
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO documents (candidate_id, original_filename, file_size, uploaded_at)
		VALUES (?, ?, ?, ?)
	`, d.CandidateID, d.Filename, d.FileSize, d.UploadedAt)
	if err != nil {
		return 0, fmt.Errorf("inserting document %s: %w", d.Filename, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading document id: %w", err)
	}

	if d.Text != "" {
		if err := setContent(ctx, tx, id, d.Text, d.ExtractedAt); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing document %s: %w", d.Filename, err)
	}
	committed = true
	return id, nil
}

// SetExtractedText stores (or replaces) the extracted text of a document.
func (s *Store) SetExtractedText(ctx context.Context, documentID int64, text string, extractedAt time.Time) error {
	if extractedAt.IsZero() {
		extractedAt = time.Now().UTC()
	}
	return setContent(ctx, s.db, documentID, text, extractedAt)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setContent(ctx context.Context, ex execer, documentID int64, text string, at time.Time) error {
	_, err := ex.ExecContext(ctx, `
		INSERT OR REPLACE INTO document_content (document_id, extracted_text, extracted_at)
		VALUES (?, ?, ?)
	`, documentID, text, at)
	if err != nil {
		return fmt.Errorf("storing content of document %d: %w", documentID, err)
	}
	return nil
}

// SoftDeleteDocument hides a document from every search. Deleting an already
// deleted or unknown document fails with core.ErrNotFound.
func (s *Store) SoftDeleteDocument(ctx context.Context, documentID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL
	`, time.Now().UTC(), documentID)
	if err != nil {
		return fmt.Errorf("deleting document %d: %w", documentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document %d: %w", documentID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: document with ID %d", core.ErrNotFound, documentID)
	}
	return nil
}

// FetchDocuments returns the non-deleted documents matching filter, ordered by
// id.
func (s *Store) FetchDocuments(ctx context.Context, filter core.DocumentFilter) ([]core.Document, error) {
	var conditions []string
	var args []any

	conditions = append(conditions, "d.deleted_at IS NULL")
	if filter.CandidateID != nil {
		conditions = append(conditions, "d.candidate_id = ?")
		args = append(args, *filter.CandidateID)
	}
	if filter.ExtractedOnly {
		conditions = append(conditions, "c.document_id IS NOT NULL AND c.extracted_text != ''")
	}

	query := `
		SELECT d.id, d.candidate_id, ca.first_name, ca.last_name, d.original_filename,
		       d.file_size, d.uploaded_at, c.extracted_text, c.extracted_at
		FROM documents d
		JOIN candidates ca ON ca.id = d.candidate_id
		LEFT JOIN document_content c ON c.document_id = d.id
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY d.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer closeRows(rows)

	var docs []core.Document
	for rows.Next() {
		var d core.Document
		var first, last string
		var size sql.NullInt64
		var text sql.NullString
		var extractedAt sql.NullTime

		err := rows.Scan(&d.ID, &d.CandidateID, &first, &last, &d.Filename,
			&size, &d.UploadedAt, &text, &extractedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}

		d.CandidateName = core.Candidate{FirstName: first, LastName: last}.Name()
		d.ExtractedText = text.String
		if size.Valid {
			d.FileSize = &size.Int64
		}
		if extractedAt.Valid {
			d.ExtractedAt = &extractedAt.Time
		}
		docs = append(docs, d)
	}

	return docs, rows.Err()
}
