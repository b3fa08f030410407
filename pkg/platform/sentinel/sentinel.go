package sentinel

import "errors"

// Sentinel dependency errors. Dependencies should return these (optionally wrapped)
// so services can translate them into domain errors exactly once.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrAlreadyUsed  = errors.New("already used")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrLimitReached = errors.New("limit reached")
	ErrUnavailable  = errors.New("unavailable")
)

// DuplicateError reports a uniqueness violation on a named field.
// It matches ErrAlreadyUsed through errors.Is.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return e.Field + " already used"
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrAlreadyUsed
}

// Duplicate builds a DuplicateError for field.
func Duplicate(field string) error {
	return &DuplicateError{Field: field}
}

// DuplicateField extracts the offending field from a duplicate error chain.
func DuplicateField(err error) (string, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Field, true
	}
	return "", false
}
