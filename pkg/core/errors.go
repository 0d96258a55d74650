package core

import "errors"

// Search error taxonomy. Callers wrap these with fmt.Errorf("%w: ...") and
// inspect them with errors.Is or KindOf.
var (
	// ErrInvalidQuery indicates a query that is empty, too long, or has no
	// searchable term or phrase after normalization.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidRequest indicates bad pagination or highlight bounds.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound indicates an unknown candidate filter.
	ErrNotFound = errors.New("not found")

	// ErrFetchFailure indicates the document source could not be read.
	ErrFetchFailure = errors.New("fetch failure")

	// ErrRecordFailure indicates a history write failed. It is logged, never
	// returned to search callers.
	ErrRecordFailure = errors.New("record failure")
)

// Kind is the stable, machine-readable name of an error class.
type Kind string

const (
	KindInvalidQuery   Kind = "invalid_query"
	KindInvalidRequest Kind = "invalid_request"
	KindNotFound       Kind = "not_found"
	KindFetchFailure   Kind = "fetch_failure"
	KindRecordFailure  Kind = "record_failure"
	KindInternal       Kind = "internal"
)

// KindOf maps err to its Kind. Errors outside the taxonomy are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidQuery):
		return KindInvalidQuery
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrFetchFailure):
		return KindFetchFailure
	case errors.Is(err, ErrRecordFailure):
		return KindRecordFailure
	default:
		return KindInternal
	}
}

// IsClientFault reports whether err was caused by the caller's input.
func IsClientFault(err error) bool {
	switch KindOf(err) {
	case KindInvalidQuery, KindInvalidRequest, KindNotFound:
		return true
	}
	return false
}
