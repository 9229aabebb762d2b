// Package apperr holds the error taxonomy shared by the table administration
// core. Callers match kinds with errors.Is against the sentinels below.
package apperr

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrTypeResolution    = errors.New("type resolution failed")
	ErrInvalidIdentifier = errors.New("invalid row identifier")
	ErrInvalidColumn     = errors.New("invalid column")
	ErrSchemaValidation  = errors.New("schema validation failed")
	ErrBackendExecution  = errors.New("backend execution failed")
	ErrBackendTimeout    = errors.New("backend timeout")
)

// Kind is a stable name for an error category.
type Kind string

const (
	KindTypeResolution    Kind = "type_resolution"
	KindInvalidIdentifier Kind = "invalid_identifier"
	KindInvalidColumn     Kind = "invalid_column"
	KindSchemaValidation  Kind = "schema_validation"
	KindBackendExecution  Kind = "backend_execution"
	KindBackendTimeout    Kind = "backend_timeout"
	KindUnknown           Kind = "unknown"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrTypeResolution, KindTypeResolution},
	{ErrInvalidIdentifier, KindInvalidIdentifier},
	{ErrInvalidColumn, KindInvalidColumn},
	{ErrSchemaValidation, KindSchemaValidation},
	{ErrBackendTimeout, KindBackendTimeout},
	{ErrBackendExecution, KindBackendExecution},
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// pq reports a statement cancelled by context or statement_timeout with this code.
const queryCanceled = "57014"

// Backend classifies an error returned by the driver. Errors that already
// carry a kind are returned unchanged.
func Backend(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrBackendTimeout, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == queryCanceled {
		return fmt.Errorf("%w: %w", ErrBackendTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrBackendExecution, err)
}

// StepError reports which statement or row of a multi-step operation failed.
type StepError struct {
	Step   int
	Total  int
	Target string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d of %d (%s) failed: %v", e.Step+1, e.Total, e.Target, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
