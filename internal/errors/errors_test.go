package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrievalError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	wrapped := New(ErrCodeChunkNotFound, "chunk not found: deadbeef", originalErr)

	require.NotNil(t, wrapped)
	assert.Equal(t, originalErr, errors.Unwrap(wrapped))
	assert.True(t, errors.Is(wrapped, originalErr))
}

func TestRetrievalError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "invalid input",
			code:     ErrCodeInvalidInput,
			message:  "query must not be empty",
			expected: "[ERR_101_INVALID_INPUT] query must not be empty",
		},
		{
			name:     "not found",
			code:     ErrCodeChunkNotFound,
			message:  "chunk deadbeef not found",
			expected: "[ERR_201_CHUNK_NOT_FOUND] chunk deadbeef not found",
		},
		{
			name:     "store dependency",
			code:     ErrCodeStoreUnavailable,
			message:  "store connection refused",
			expected: "[ERR_401_STORE_UNAVAILABLE] store connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestRetrievalError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeChunkNotFound, "chunk A not found", nil)
	err2 := New(ErrCodeChunkNotFound, "chunk B not found", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestRetrievalError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeChunkNotFound, "chunk not found", nil)
	err2 := New(ErrCodeInvalidInput, "bad input", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestRetrievalError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeChunkNotFound, "chunk not found", nil)

	err = err.WithDetail("chunk_hash", "deadbeef")
	err = err.WithDetail("source_doc", "doc-1")

	assert.Equal(t, "deadbeef", err.Details["chunk_hash"])
	assert.Equal(t, "doc-1", err.Details["source_doc"])
}

func TestRetrievalError_WithSuggestion_AddsSuggestion(t *testing.T) {
	err := New(ErrCodeStoreUnavailable, "store connection timed out", nil)

	err = err.WithSuggestion("check the graph store connection pool")

	assert.Equal(t, "check the graph store connection pool", err.Suggestion)
}

func TestRetrievalError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeInvalidInput, CategoryInvalidInput},
		{ErrCodeDimensionMismatch, CategoryInvalidInput},
		{ErrCodeChunkNotFound, CategoryNotFound},
		{ErrCodeNoWalkStart, CategoryNotFound},
		{ErrCodeEmbeddingFailed, CategoryDependencyVectorizer},
		{ErrCodeStoreUnavailable, CategoryDependencyStore},
		{ErrCodeCacheUnavailable, CategoryDependencyCache},
		{ErrCodeTimeout, CategoryTimeout},
		{ErrCodeCancelled, CategoryCancelled},
		{ErrCodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestRetrievalError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeIndexOffline, SeverityFatal},
		{ErrCodeStoreUnavailable, SeverityFatal},
		{ErrCodeChunkNotFound, SeverityError},
		{ErrCodeTimeout, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestRetrievalError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeStoreUnavailable, true},
		{ErrCodeTransactionAborted, true},
		{ErrCodeTimeout, true},
		{ErrCodeChunkNotFound, false},
		{ErrCodeInvalidInput, false},
		{ErrCodeIndexOffline, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesRetrievalErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	wrapped := Wrap(ErrCodeInternal, originalErr)

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrCodeInternal, wrapped.Code)
	assert.Equal(t, "something went wrong", wrapped.Message)
	assert.Equal(t, originalErr, wrapped.Cause)
}

func TestInvalidInput_CreatesInvalidInputCategoryError(t *testing.T) {
	err := InvalidInput("k must be positive", nil)

	assert.Equal(t, CategoryInvalidInput, err.Category)
	assert.Contains(t, err.Code, "INVALID_INPUT")
}

func TestNotFound_CreatesNotFoundCategoryError(t *testing.T) {
	err := NotFound("chunk not found", nil)

	assert.Equal(t, CategoryNotFound, err.Category)
}

func TestStoreError_CreatesRetryableError(t *testing.T) {
	err := StoreError("connection refused", nil)

	assert.Equal(t, CategoryDependencyStore, err.Category)
	assert.True(t, err.Retryable)
}

func TestVectorizerError_CreatesDependencyCategoryError(t *testing.T) {
	err := VectorizerError("embedding model unavailable", nil)

	assert.Equal(t, CategoryDependencyVectorizer, err.Category)
}

func TestCacheError_IsAlwaysRecoverable(t *testing.T) {
	err := CacheError("cache decode failed", nil)

	assert.Equal(t, CategoryDependencyCache, err.Category)
	assert.False(t, err.Retryable)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable store error",
			err:      New(ErrCodeStoreUnavailable, "timeout", nil),
			expected: true,
		},
		{
			name:     "non-retryable not-found error",
			err:      New(ErrCodeChunkNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(ErrCodeTimeout, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "vector index offline is fatal",
			err:      New(ErrCodeIndexOffline, "index offline", nil),
			expected: true,
		},
		{
			name:     "store unavailable is fatal",
			err:      New(ErrCodeStoreUnavailable, "no connection", nil),
			expected: true,
		},
		{
			name:     "not found is non-fatal",
			err:      New(ErrCodeChunkNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}
