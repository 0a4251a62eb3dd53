package sshexec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDependencyCheck(t *testing.T) {
	// Clean import, modules present.
	missing, err := classifyDependencyCheck("", nil)
	assert.False(t, missing)
	assert.NoError(t, err)

	// Missing module exits non-zero; that is the install path, not a
	// failure.
	missing, err = classifyDependencyCheck(
		"Traceback (most recent call last):\nModuleNotFoundError: No module named 'pynvml'",
		errors.New("Process exited with status 1"))
	assert.True(t, missing)
	assert.NoError(t, err)

	missing, err = classifyDependencyCheck("ImportError: No module named psutil", nil)
	assert.True(t, missing)
	assert.NoError(t, err)

	// A dead channel produces no marker output; the error must surface.
	missing, err = classifyDependencyCheck("", ErrCommandTimeout)
	assert.False(t, missing)
	assert.ErrorIs(t, err, ErrCommandTimeout)

	missing, err = classifyDependencyCheck("sh: python3: command not found", errors.New("Process exited with status 127"))
	assert.False(t, missing)
	assert.Error(t, err)
}
