package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError(t *testing.T) {
	err := Configuration("group_by", "unknown field nonexistent_field")

	assert.Equal(t, CodeConfiguration, err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status())
	assert.Contains(t, err.Error(), "group_by")
	assert.True(t, IsCode(fmt.Errorf("wrapped: %w", err), CodeConfiguration))
}

func TestFromStore(t *testing.T) {
	assert.Nil(t, FromStore("find", nil))

	timeout := FromStore("find", fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.True(t, IsCode(timeout, CodeTimeout))
	assert.True(t, stderrors.Is(timeout, context.DeadlineExceeded))

	down := FromStore("find", stderrors.New("connection refused"))
	assert.True(t, IsCode(down, CodeUnavailable))
	assert.Equal(t, http.StatusServiceUnavailable, CodeUnavailable.StatusCode())

	canceled := FromStore("find", context.Canceled)
	assert.Equal(t, ErrorCode(""), CodeOf(canceled))

	structured := Configuration("x", "bad")
	assert.Same(t, structured, FromStore("find", structured))
}

func TestFromDependencyNamesService(t *testing.T) {
	err := FromDependency("content store", "recent_ids", stderrors.New("no such table"))
	assert.True(t, IsCode(err, CodeUnavailable))
	assert.Contains(t, err.Error(), "content store is unavailable")
	assert.Contains(t, err.Error(), "recent_ids")
}

func TestUnknownCodeMapsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, ErrorCode("BOGUS").StatusCode())
}
