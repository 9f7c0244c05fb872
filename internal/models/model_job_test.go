package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from JobStatus
		to   JobStatus
		want bool
	}{
		{JobStatusPending, JobStatusTraining, true},
		{JobStatusPending, JobStatusSucceeded, true},
		{JobStatusPending, JobStatusFailed, true},
		{JobStatusTraining, JobStatusSucceeded, true},
		{JobStatusTraining, JobStatusFailed, true},
		{JobStatusPending, JobStatusPending, false},
		{JobStatusTraining, JobStatusTraining, false},
		{JobStatusTraining, JobStatusPending, false},
		{JobStatusSucceeded, JobStatusTraining, false},
		{JobStatusSucceeded, JobStatusFailed, false},
		{JobStatusFailed, JobStatusSucceeded, false},
		{JobStatusFailed, JobStatusPending, false},
		{JobStatusPending, JobStatus("unknown"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusTraining.IsTerminal())
	assert.True(t, JobStatusSucceeded.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
}
