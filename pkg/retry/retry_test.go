package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	return cfg
}

func TestDoRetriesTransientFailure(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), testConfig(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	sentinel := errors.New("still down")
	err := Do(context.Background(), testConfig(), func() error {
		attempts++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want the last failure", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoDoesNotRetryContextErrors(t *testing.T) {
	for _, ctxErr := range []error{context.Canceled, context.DeadlineExceeded} {
		attempts := 0
		err := Do(context.Background(), testConfig(), func() error {
			attempts++
			return fmt.Errorf("call failed: %w", ctxErr)
		})
		if !errors.Is(err, ctxErr) {
			t.Fatalf("error = %v, want %v", err, ctxErr)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1 for %v", attempts, ctxErr)
		}
	}
}

func TestDoHonorsAllowlist(t *testing.T) {
	retryable := errors.New("retry me")
	cfg := testConfig()
	cfg.RetryableErrors = []error{retryable}

	attempts := 0
	permanent := errors.New("bad request")
	if err := Do(context.Background(), cfg, func() error {
		attempts++
		return permanent
	}); !errors.Is(err, permanent) {
		t.Fatalf("error = %v, want permanent failure", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, an error outside the allowlist must not be retried", attempts)
	}

	attempts = 0
	if err := Do(context.Background(), cfg, func() error {
		attempts++
		if attempts < 2 {
			return retryable
		}
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}
