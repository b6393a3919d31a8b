package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
	"time"
)

func TestRateLimitError(t *testing.T) {
	err := NewRateLimitError("slow down")

	if err.Error() != "slow down" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "slow down")
	}

	if !IsRateLimitError(err) {
		t.Fatalf("IsRateLimitError returned false for RateLimitError")
	}

	wrapped := stdErrors.Join(err)
	if !IsRateLimitError(wrapped) {
		t.Fatalf("IsRateLimitError returned false for wrapped RateLimitError")
	}
}

func TestStopProcessingError(t *testing.T) {
	err := NewStopProcessingError("user stopped")

	if err.Error() != "user stopped" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "user stopped")
	}

	if !IsStopProcessingError(err) {
		t.Fatalf("IsStopProcessingError returned false for StopProcessingError")
	}

	wrapped := stdErrors.Join(err)
	if !IsStopProcessingError(wrapped) {
		t.Fatalf("IsStopProcessingError returned false for wrapped StopProcessingError")
	}
}

func TestRateLimitErrorWithRetry(t *testing.T) {
	err := NewRateLimitErrorWithRetry("too many requests", 2*time.Minute)

	expected := "too many requests (retry after 2m0s)"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}

	if !IsRateLimitError(err) {
		t.Fatalf("IsRateLimitError returned false for RateLimitErrorWithRetry")
	}

	if err.RetryAfter.Minutes() != 2.0 {
		t.Fatalf("RetryAfter = %v, want 2 minutes", err.RetryAfter)
	}
}

func TestRateLimitErrorWithRetry_ZeroDuration(t *testing.T) {
	err := NewRateLimitErrorWithRetry("rate limited", 0)

	// When RetryAfter is 0, the implementation only adds retry info if > 0
	expected := "rate limited"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}

	if err.RetryAfter != 0 {
		t.Fatalf("RetryAfter = %v, want 0", err.RetryAfter)
	}
}

func TestRateLimitErrorWithRetry_VariousDurations(t *testing.T) {
	tests := []struct {
		name            string
		duration        time.Duration
		expectedMessage string
	}{
		{
			name:            "1 second",
			duration:        1 * time.Second,
			expectedMessage: "rate limited (retry after 1s)",
		},
		{
			name:            "30 seconds",
			duration:        30 * time.Second,
			expectedMessage: "rate limited (retry after 30s)",
		},
		{
			name:            "1 hour",
			duration:        1 * time.Hour,
			expectedMessage: "rate limited (retry after 1h0m0s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRateLimitErrorWithRetry("rate limited", tt.duration)
			if err.Error() != tt.expectedMessage {
				t.Fatalf("Error message = %q, want %q", err.Error(), tt.expectedMessage)
			}
		})
	}
}

func TestAPIAccessError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		apiMessage string
		expected   string
	}{
		{
			name:       "401 with body",
			status:     401,
			apiMessage: "Invalid key",
			expected:   "RAWG: invalid or missing API key (HTTP 401): Invalid key",
		},
		{
			name:     "403 without body",
			status:   403,
			expected: "RAWG: access forbidden, check the API key (HTTP 403)",
		},
		{
			name:     "other status",
			status:   418,
			expected: "RAWG: API access error (HTTP 418)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIAccessError("RAWG", tt.status, tt.apiMessage)
			if err.Error() != tt.expected {
				t.Fatalf("Error message = %q, want %q", err.Error(), tt.expected)
			}
			if err.StatusCode != tt.status {
				t.Fatalf("StatusCode = %d, want %d", err.StatusCode, tt.status)
			}
		})
	}
}

func TestIsAPIAccessError(t *testing.T) {
	err := fmt.Errorf("search failed: %w", NewAPIAccessError("SteamGridDB", 401, ""))
	if !IsAPIAccessError(err) {
		t.Fatalf("IsAPIAccessError returned false for wrapped APIAccessError")
	}
	if IsAPIAccessError(stdErrors.New("other")) {
		t.Fatalf("IsAPIAccessError returned true for plain error")
	}
}
