package errors

import (
	stderrors "errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodedError_Format(t *testing.T) {
	err := New(ErrCodeQueryEmpty, "query must not be empty", nil)
	assert.Equal(t, "[ERR_403_QUERY_EMPTY] query must not be empty", err.Error())
}

func TestCodedError_MatchesByCode(t *testing.T) {
	err := New(ErrCodeCorruptIndex, "chunks.json is unreadable", nil)

	assert.True(t, stderrors.Is(err, New(ErrCodeCorruptIndex, "different message", nil)))
	assert.False(t, stderrors.Is(err, New(ErrCodeFileNotFound, "", nil)))
}

func TestCodedError_UnwrapsCause(t *testing.T) {
	cause := fs.ErrNotExist
	err := Wrap(ErrCodeFileNotFound, cause)

	require.NotNil(t, err)
	assert.True(t, stderrors.Is(err, fs.ErrNotExist))
	assert.Equal(t, cause.Error(), err.Message)
}

func TestWrap_NilCause(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestCategoryFromCode(t *testing.T) {
	cases := map[string]Category{
		ErrCodeConfigInvalid:     CategoryConfig,
		ErrCodeIndexLocked:       CategoryIO,
		ErrCodeDimensionMismatch: CategoryValidation,
		ErrCodeEmbeddingFailed:   CategoryInternal,
		"bad":                    CategoryInternal,
	}
	for code, want := range cases {
		assert.Equal(t, want, New(code, "", nil).Category, code)
	}
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrCodeConfigInvalid, "unknown provider", nil).
		WithSuggestion("use one of: tfidf, semhash, code")
	assert.Equal(t, "use one of: tfidf, semhash, code", err.Suggestion)
}
