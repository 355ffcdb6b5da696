package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyShouldRetry(t *testing.T) {
	p := DefaultRetryPolicy()

	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{"nil error", nil, 1, false},
		{"connection refused", errors.New("dial tcp: connection refused"), 1, true},
		{"connection reset", errors.New("read: connection reset by peer"), 2, true},
		{"timeout", errors.New("request timeout"), 1, true},
		{"temporary failure", errors.New("temporary failure in name resolution"), 1, true},
		{"unknown error", errors.New("something odd happened"), 1, true},
		{"invalid request", errors.New("invalid recipient id"), 1, false},
		{"unauthorized", errors.New("401 unauthorized"), 1, false},
		{"forbidden", errors.New("403 forbidden"), 1, false},
		{"context canceled", context.Canceled, 1, false},
		{"deadline exceeded", context.DeadlineExceeded, 1, false},
		{"attempts exhausted", errors.New("timeout"), 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ShouldRetry(tt.err, tt.attempt); got != tt.want {
				t.Errorf("ShouldRetry(%v, %d) = %v, want %v", tt.err, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	p := DefaultRetryPolicy()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := p.NextDelay(tt.attempt); got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryExecuteSucceedsAfterFailures(t *testing.T) {
	p := &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}

	calls := 0
	err := p.Execute(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryExecuteStopsOnPermanentError(t *testing.T) {
	p := &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}

	calls := 0
	err := p.Execute(context.Background(), func() error {
		calls++
		return errors.New("401 unauthorized")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call for permanent error, got %d", calls)
	}
}

func TestRetryExecuteExhaustsAttempts(t *testing.T) {
	p := &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}

	calls := 0
	err := p.Execute(context.Background(), func() error {
		calls++
		return errors.New("timeout")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryExecuteAbortsOnContextCancel(t *testing.T) {
	p := &RetryPolicy{MaxAttempts: 5, InitialDelay: time.Minute, Multiplier: 1, MaxDelay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Execute(ctx, func() error {
			calls++
			return errors.New("timeout")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected the last error to be returned")
		}
	case <-time.After(time.Second):
		t.Fatal("Execute did not abort on context cancellation")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}
