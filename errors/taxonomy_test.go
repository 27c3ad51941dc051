package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTaxonomyMarks tests that helpers mark errors with their sentinel
func TestTaxonomyMarks(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "not found", err: NotFoundf("object %d", 7), sentinel: ErrNotFound},
		{name: "conflict", err: Conflictf("already active"), sentinel: ErrConflict},
		{name: "unprocessable", err: Unprocessablef("bad value"), sentinel: ErrUnprocessable},
		{name: "geometry", err: Geometryf("bad output"), sentinel: ErrGeometry},
		{name: "limit", err: LimitExceededf("quota"), sentinel: ErrLimitExceeded},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, Is(tc.err, tc.sentinel))
			for _, other := range testCases {
				if other.sentinel != tc.sentinel {
					assert.False(t, Is(tc.err, other.sentinel))
				}
			}
		})
	}
}

// TestWrapKeepsMark tests that wrapping preserves the taxonomy mark
func TestWrapKeepsMark(t *testing.T) {
	err := Wrap(NotFoundf("object 7"), "loading asset")
	assert.True(t, Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "loading asset")
}

// TestValidationAccumulates tests the multi-violation container
func TestValidationAccumulates(t *testing.T) {
	var v Validation
	assert.True(t, v.Valid())
	assert.NoError(t, v.Err())

	v.Reject("label", "required field has no value")
	v.Reject("owner", "required field has no value")

	assert.False(t, v.Valid())
	err := v.Err()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "label")
	assert.Contains(t, err.Error(), "owner")
}
