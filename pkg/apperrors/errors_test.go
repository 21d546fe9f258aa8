package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/courtside/rally/pkg/apperrors"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(apperrors.Validation("bad %s", "input")))
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(apperrors.Conflict("taken")))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(apperrors.NotFound("Team")))
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(apperrors.Forbidden("no")))
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(apperrors.Unauthenticated("")))
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(errors.New("plain")))
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(nil))
}

func TestIsKindSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("saving roster: %w", apperrors.Conflict("taken"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.False(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := apperrors.Internal(cause)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}
