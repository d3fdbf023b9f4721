package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BreakerEnabled: false,
	}
}

func retryAll(error) Classification {
	return Classification{Retryable: true, CountsAsFailure: true}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	exec := New(fastPolicy())

	calls := 0
	err := exec.Execute(context.Background(), "test.op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, retryAll)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteStopsOnNonRetryable(t *testing.T) {
	exec := New(fastPolicy())

	calls := 0
	err := exec.Execute(context.Background(), "test.op", func(context.Context) error {
		calls++
		return errors.New("fatal")
	}, func(error) Classification {
		return Classification{Retryable: false, CountsAsFailure: true}
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("non-retryable error must not retry, got %d attempts", calls)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	exec := New(fastPolicy())

	calls := 0
	err := exec.Execute(context.Background(), "test.op", func(context.Context) error {
		calls++
		return errors.New("transient")
	}, retryAll)
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	exec := New(fastPolicy())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exec.Execute(ctx, "test.op", func(context.Context) error {
		t.Fatalf("callback must not run on cancelled context")
		return nil
	}, retryAll)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBreakerOpensAfterFailureBudget(t *testing.T) {
	policy := fastPolicy()
	policy.BreakerEnabled = true
	policy.BreakerMinRequests = 2
	policy.BreakerFailureRatio = 0.5
	policy.BreakerOpenTimeout = time.Minute
	exec := New(policy)

	boom := func(context.Context) error { return errors.New("down") }
	noRetry := func(error) Classification { return Classification{CountsAsFailure: true} }

	for i := 0; i < 3; i++ {
		_ = exec.Execute(context.Background(), "test.breaker", boom, noRetry)
	}

	err := exec.Execute(context.Background(), "test.breaker", func(context.Context) error {
		t.Fatalf("open breaker must not invoke callback")
		return nil
	}, noRetry)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}
