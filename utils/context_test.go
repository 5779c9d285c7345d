package utils

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsContextCanceled(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "direct context.Canceled",
			err:      context.Canceled,
			expected: true,
		},
		{
			name:     "wrapped context.Canceled",
			err:      fmt.Errorf("wrapped: %w", context.Canceled),
			expected: true,
		},
		{
			name:     "sdk error text",
			err:      errors.New("Put \"http://127.0.0.1:9000/images/1_a.png\": context canceled"),
			expected: true,
		},
		{
			name:     "deadline is not cancellation",
			err:      context.DeadlineExceeded,
			expected: false,
		},
		{
			name:     "other error",
			err:      errors.New("some other error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsContextCanceled(tt.err)
			if result != tt.expected {
				t.Errorf("IsContextCanceled(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestIsClientDisconnect(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, true},
		{"broken pipe", fmt.Errorf("write: %w", syscall.EPIPE), true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"other", errors.New("disk full"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsClientDisconnect(tt.err); got != tt.expected {
				t.Errorf("IsClientDisconnect(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}
