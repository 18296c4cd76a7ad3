package errshttp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	err := NewError(http.StatusBadRequest, "No name found for %s", "container")
	assert.Equal(t, "No name found for container", err.Error())
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(http.StatusNotFound, "Failed to find container: ", cause)
	assert.Equal(t, "Failed to find container: boom", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsNotFound(err))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, http.StatusNotFound, StatusCode(wrapped))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(http.StatusInternalServerError, "prefix: ", nil))
}

func TestStatusCodeDefault(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}
