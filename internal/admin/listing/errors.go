package listing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPageSize indicates a page size outside the configured set.
	ErrInvalidPageSize = errors.New("listing: invalid page size")
	// ErrEmptyFilterKey indicates SetFilter was called without a key.
	ErrEmptyFilterKey = errors.New("listing: filter key is required")
	// ErrPageOutOfRange is the sentinel wrapped by OutOfRangeError.
	ErrPageOutOfRange = errors.New("listing: page out of range")
)

// OutOfRangeError reports a direct page request outside [1, TotalPages].
type OutOfRangeError struct {
	Page       int
	TotalPages int
}

func (e *OutOfRangeError) Error() string {
	if e == nil {
		return ErrPageOutOfRange.Error()
	}
	return fmt.Sprintf("listing: page %d out of range [1, %d]", e.Page, e.TotalPages)
}

// Unwrap exposes ErrPageOutOfRange for errors.Is checks.
func (e *OutOfRangeError) Unwrap() error {
	return ErrPageOutOfRange
}
