package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(_ context.Context, _ time.Duration) {}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	cfg := DefaultRetryConfig()
	cfg.Sleep = noSleep

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_TwoFailuresThenSuccess(t *testing.T) {
	var calls int
	var slept []time.Duration

	cfg := DefaultRetryConfig()
	cfg.Sleep = func(_ context.Context, d time.Duration) {
		slept = append(slept, d)
	}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("temporary"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(slept) != 2 {
		t.Fatalf("expected exactly 2 sleeps, got %d", len(slept))
	}
	if slept[1] < slept[0] {
		t.Errorf("expected non-decreasing delays, got %v then %v", slept[0], slept[1])
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	cfg := DefaultRetryConfig()
	cfg.Sleep = noSleep

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("always fails"), 500)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_PermanentError_NoRetry(t *testing.T) {
	var calls int
	cfg := DefaultRetryConfig()
	cfg.Sleep = noSleep

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return NewPermanentError(errors.New("page not found"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int

	cfg := DefaultRetryConfig()
	cfg.Sleep = noSleep

	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("temporary"), 503)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancellation, got %d", calls)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	cfg := DefaultRetryConfig()
	cfg.Sleep = noSleep

	val, err := DoVal(context.Background(), cfg, func(_ context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", NewTransientError(errors.New("temporary"), 503)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "ok" {
		t.Errorf("expected ok, got %q", val)
	}
}

func TestComputeBackoff_Exponential(t *testing.T) {
	cfg := applyDefaults(RetryConfig{InitialBackoff: 2 * time.Second})

	if d := computeBackoff(1, cfg); d != 2*time.Second {
		t.Errorf("attempt 1: expected 2s, got %v", d)
	}
	if d := computeBackoff(2, cfg); d != 4*time.Second {
		t.Errorf("attempt 2: expected 4s, got %v", d)
	}
	if d := computeBackoff(3, cfg); d != 8*time.Second {
		t.Errorf("attempt 3: expected 8s, got %v", d)
	}
}

func TestComputeBackoff_Linear(t *testing.T) {
	cfg := applyDefaults(APIRetryConfig())

	if d := computeBackoff(1, cfg); d != 2*time.Second {
		t.Errorf("attempt 1: expected 2s, got %v", d)
	}
	if d := computeBackoff(2, cfg); d != 4*time.Second {
		t.Errorf("attempt 2: expected 4s, got %v", d)
	}
	if d := computeBackoff(3, cfg); d != 6*time.Second {
		t.Errorf("attempt 3: expected 6s, got %v", d)
	}
}

func TestComputeBackoff_Capped(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 20 * time.Second,
		MaxBackoff:     30 * time.Second,
	})
	if d := computeBackoff(3, cfg); d != 30*time.Second {
		t.Errorf("expected cap at 30s, got %v", d)
	}
}

func TestOnRetry_ReceivesDelay(t *testing.T) {
	var attempts []int
	var delays []time.Duration

	cfg := DefaultRetryConfig()
	cfg.Sleep = noSleep
	cfg.OnRetry = func(attempt int, delay time.Duration, _ error) {
		attempts = append(attempts, attempt)
		delays = append(delays, delay)
	}

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return NewTransientError(errors.New("temporary"), 500)
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("unexpected attempts: %v", attempts)
	}
	if len(delays) != 2 || delays[1] < delays[0] {
		t.Errorf("unexpected delays: %v", delays)
	}
}
