package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusQueued, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusError, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}
}

func TestJobResultLocation(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want string
	}{
		{
			name: "prefers uploaded url",
			job:  Job{LocalPath: "/tmp/video_1.mp4", ResultURL: "https://cdn.example.com/video_1.mp4"},
			want: "https://cdn.example.com/video_1.mp4",
		},
		{
			name: "falls back to local path",
			job:  Job{LocalPath: "/tmp/video_2.mp4"},
			want: "/tmp/video_2.mp4",
		},
		{
			name: "empty when nothing produced",
			job:  Job{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.job.ResultLocation())
		})
	}
}

func TestPipelineError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewPipelineError("speech", cause)

	assert.Equal(t, "speech: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	var pe *PipelineError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "speech", pe.Step)

	wrapped := fmt.Errorf("job failed: %w", err)
	assert.True(t, errors.As(wrapped, &pe))
}
