package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendClassification(t *testing.T) {
	timeout := Backend(fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, timeout, ErrBackendTimeout)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)

	canceled := Backend(&pq.Error{Code: "57014", Message: "canceling statement due to statement timeout"})
	assert.Equal(t, KindBackendTimeout, KindOf(canceled))

	syntax := Backend(&pq.Error{Code: "42601", Message: "syntax error at or near \"FROM\""})
	assert.Equal(t, KindBackendExecution, KindOf(syntax))
	assert.Contains(t, syntax.Error(), "syntax error at or near")

	var pqErr *pq.Error
	require.True(t, errors.As(syntax, &pqErr), "driver error must stay in the chain")
	assert.Equal(t, pq.ErrorCode("42601"), pqErr.Code)
}

func TestBackendKeepsClassifiedErrors(t *testing.T) {
	original := fmt.Errorf("%w: column %q", ErrTypeResolution, "age")
	assert.Same(t, original, Backend(original))
	assert.Nil(t, Backend(nil))
}

func TestKindOf(t *testing.T) {
	cases := map[error]Kind{
		ErrTypeResolution:                        KindTypeResolution,
		fmt.Errorf("x: %w", ErrInvalidIdentifier): KindInvalidIdentifier,
		ErrInvalidColumn:                         KindInvalidColumn,
		ErrSchemaValidation:                      KindSchemaValidation,
		errors.New("boom"):                       KindUnknown,
	}
	for err, want := range cases {
		assert.Equal(t, want, KindOf(err), err.Error())
	}
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestStepError(t *testing.T) {
	err := &StepError{Step: 1, Total: 3, Target: "age", Err: Backend(errors.New("column \"age\" already exists"))}
	assert.Equal(t, `step 2 of 3 (age) failed: backend execution failed: column "age" already exists`, err.Error())
	assert.ErrorIs(t, err, ErrBackendExecution)
}
