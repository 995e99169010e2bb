package errorutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassesThroughWrappedDomainErrors(t *testing.T) {
	base := NewInvariantViolation("cannot remove the last visit", nil)
	wrapped := fmt.Errorf("adjust: %w", base)

	de := ToDomainError(wrapped)
	require.NotNil(t, de)
	assert.Equal(t, CodeInvariantViolation, de.Code)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
}

func TestToDomainErrorMapsKnownSentinels(t *testing.T) {
	assert.Equal(t, CodeNotFound, ToDomainError(sql.ErrNoRows).Code)
	assert.Equal(t, CodeStorageUnavailable, ToDomainError(context.DeadlineExceeded).Code)
	assert.Equal(t, http.StatusServiceUnavailable, ToDomainError(context.DeadlineExceeded).HTTPStatus)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}

func TestWithStatusDoesNotMutateOriginal(t *testing.T) {
	orig := NewConflict("phone already registered", nil)
	changed := WithStatus(orig, http.StatusBadRequest)

	assert.Equal(t, http.StatusConflict, ToDomainError(orig).HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, ToDomainError(changed).HTTPStatus)
	assert.True(t, HasCode(changed, CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
}
