package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", ErrAlreadyReported)
	appErr := FromError(wrapped)
	require.Equal(t, "ALREADY_REPORTED", appErr.Code)
	require.Equal(t, http.StatusConflict, appErr.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("boom")
	appErr := FromError(cause)
	require.Equal(t, ErrInternal.Code, appErr.Code)
	require.ErrorIs(t, appErr, cause)
}

func TestCloneDoesNotMutateSentinel(t *testing.T) {
	clone := Clone(ErrValidation, "reasonCode is required")
	require.Equal(t, "reasonCode is required", clone.Message)
	require.Equal(t, "validation failed", ErrValidation.Message)
	require.Nil(t, Clone(nil, "x"))
}
