package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("row not found")
	err := Wrap(NotFound, "file not found", cause)

	assert.Equal(t, NotFound, KindOf(err))
	assert.Equal(t, NotFound, KindOf(fmt.Errorf("outer: %w", err)))
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
	assert.Equal(t, Internal, KindOf(nil))
}

func TestErrorIsMatchesByKind(t *testing.T) {
	err := Newf(QuotaExceeded, "need %d bytes", 10)

	assert.ErrorIs(t, err, New(QuotaExceeded, ""))
	assert.NotErrorIs(t, err, New(Conflict, ""))
}

func TestWrapNilCause(t *testing.T) {
	assert.Nil(t, Wrap(Internal, "x", nil))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "version conflict", MessageOf(New(Conflict, "version conflict")))
	assert.Equal(t, "internal server error", MessageOf(errors.New("pq: syntax error")))
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(StorageWrite, "write blob", errors.New("timeout"))
	assert.Equal(t, "write blob: timeout", err.Error())
	assert.Equal(t, "timeout", errors.Unwrap(err).Error())
}

func TestKindCodes(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", NotFound.String())
	assert.Equal(t, "QUOTA_EXCEEDED", QuotaExceeded.String())
	assert.Equal(t, "INTERNAL_ERROR", Internal.String())
}
