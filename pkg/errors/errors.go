package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingFields          = errors.New("missing required fields")
	ErrEmptyUserID            = errors.New("user id is empty")
	ErrInvalidGameID          = errors.New("game_id is not an integer")
	ErrInvalidLocationID      = errors.New("location_id is not an integer")
	ErrInvalidAmount          = errors.New("amount is not numeric")
	ErrNonPositiveAmount      = errors.New("amount must be positive")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidTransactionDate = errors.New("transaction date is not parseable")
	ErrFlushFailed            = errors.New("flush failed, buffer retained")
	ErrAggregateRefresh       = errors.New("aggregate refresh failed")
)

// StructuralError reports required columns absent from a batch input.
// It aborts the whole validation call, unlike per-row rejections.
type StructuralError struct {
	Missing []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// SinkError wraps a persistence failure with the operation that failed.
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s failed: %v", e.Op, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
