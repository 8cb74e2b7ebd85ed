package corerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	a := IndexMissing("/repo")
	b := IndexMissing("/other")
	assert.True(t, errors.Is(a, b))
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := StoreWriteError(cause)
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}

func TestError_RetryableOnlyForLock(t *testing.T) {
	assert.True(t, IndexLocked("/repo", nil).Retryable)
	assert.False(t, IndexMissing("/repo").Retryable)
}

func TestError_SeverityExtractionIsWarning(t *testing.T) {
	err := ExtractionError("a.go", errors.New("parse error"))
	assert.Equal(t, SeverityWarning, err.Severity)
	assert.Equal(t, CategoryPipeline, err.Category)
}

func TestError_WithDetailChains(t *testing.T) {
	err := PathNotFound("/x", nil).WithDetail("extra", "y")
	assert.Equal(t, "/x", err.Details["path"])
	assert.Equal(t, "y", err.Details["extra"])
}
