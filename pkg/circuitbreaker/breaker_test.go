package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func failing() func() error {
	return func() error { return errors.New("backend down") }
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{
		FailureThreshold: 2,
		Timeout:          time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := cb.Execute(ctx, failing()); err == nil {
			t.Fatal("expected failure to propagate")
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
	err := cb.Execute(ctx, func() error {
		t.Fatal("open breaker must not invoke the call")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{
		MaxRequests:      2,
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Millisecond,
	})
	ctx := context.Background()

	if err := cb.Execute(ctx, failing()); err == nil {
		t.Fatal("expected failure to propagate")
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	time.Sleep(5 * time.Millisecond)

	for i := 0; i < 2; i++ {
		if err := cb.Execute(ctx, func() error { return nil }); err != nil {
			t.Fatalf("half-open probe %d: %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after recovery", cb.State())
	}
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{FailureThreshold: 2})
	ctx := context.Background()

	cb.Execute(ctx, failing())
	cb.Execute(ctx, func() error { return nil })
	cb.Execute(ctx, failing())

	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed while failures stay below threshold", cb.State())
	}
	if got := cb.Counts().ConsecutiveFailures; got != 1 {
		t.Fatalf("consecutive failures = %d, want 1", got)
	}
}
