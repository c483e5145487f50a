package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRunStatus(t *testing.T) {
	for _, s := range []RunStatus{RunStatusPending, RunStatusRunning, RunStatusSucceeded, RunStatusSkipped, RunStatusFailed} {
		got, err := ParseRunStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseRunStatus("completed")
	assert.Error(t, err)
}

func TestRunStatus_IsFinal(t *testing.T) {
	assert.False(t, RunStatusPending.IsFinal())
	assert.False(t, RunStatusRunning.IsFinal())
	assert.True(t, RunStatusSucceeded.IsFinal())
	assert.True(t, RunStatusSkipped.IsFinal())
	assert.True(t, RunStatusFailed.IsFinal())
}
