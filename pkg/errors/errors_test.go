package errors

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorFormatsWithAndWithoutWrappedErr(t *testing.T) {
	plain := NewAppError(CodeInsufficientData, "no planes detected", nil)
	assert.Equal(t, "INSUFFICIENT_DATA: no planes detected", plain.Error())

	wrapped := NewAppError(CodeNumericFailure, "plane fit", errors.New("singular matrix"))
	assert.Equal(t, "NUMERIC_FAILURE: plane fit: singular matrix", wrapped.Error())
	assert.Equal(t, "singular matrix", errors.Unwrap(wrapped).Error())
}

func TestWithDetailsChains(t *testing.T) {
	err := NewAppError(CodeBudgetExceeded, "arrangement too complex", nil).
		WithDetails("building_id", "42").
		WithDetails("face_count", 9001)

	require.NotNil(t, err.Details)
	assert.Equal(t, "42", err.Details["building_id"])
	assert.Equal(t, 9001, err.Details["face_count"])
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotFound(NewAppError(CodeNotFound, "tile missing", nil)))
	assert.False(t, IsNotFound(NewAppError(CodeInvalidInput, "bad config", nil)))
	assert.False(t, IsNotFound(nil))
}

func TestIsBudgetExceeded(t *testing.T) {
	assert.True(t, IsBudgetExceeded(NewAppError(CodeBudgetExceeded, "time budget", nil)))
	assert.False(t, IsBudgetExceeded(ErrInternal))
	assert.False(t, IsBudgetExceeded(nil))
}

func TestWrapIOReturnsNilForNilErr(t *testing.T) {
	assert.NoError(t, WrapIO(nil, "tile.las"))

	wrapped := WrapIO(errors.New("eof"), "tile.las")
	var appErr *AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, CodeInvalidInput, appErr.Code)
}

func TestWrapIOMapsMissingFileToNotFound(t *testing.T) {
	wrapped := WrapIO(fs.ErrNotExist, "absent.las")
	assert.True(t, IsNotFound(wrapped))
}

func TestCodeHelpers(t *testing.T) {
	assert.True(t, IsInsufficientData(NewAppError(CodeInsufficientData, "no planes", nil)))
	assert.False(t, IsInsufficientData(nil))
	assert.True(t, IsDegenerateInput(NewAppError(CodeDegenerateInput, "flat ring", nil)))
	assert.False(t, IsDegenerateInput(NewAppError(CodeBudgetExceeded, "faces", nil)))

	assert.Equal(t, CodeBudgetExceeded, CodeOf(NewAppError(CodeBudgetExceeded, "faces", nil)))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestWrapNumericReturnsNilForNilErr(t *testing.T) {
	assert.NoError(t, WrapNumeric(nil, "ransac"))

	wrapped := WrapNumeric(errors.New("did not converge"), "ransac")
	var appErr *AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, CodeNumericFailure, appErr.Code)
}
