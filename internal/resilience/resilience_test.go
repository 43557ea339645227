package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastBackoff(attempts int) Backoff {
	return Backoff{Attempts: attempts, Base: time.Millisecond, Max: 2 * time.Millisecond, Factor: 2}
}

func TestRetry_SucceedsAfterTransient(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastBackoff(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", Transient(errors.New("busy"), 503)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls", got, calls)
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastBackoff(5), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastBackoff(3), func(context.Context) (int, error) {
		calls++
		return 0, Transient(errors.New("rate limited"), 429)
	})
	var te *TransientError
	if !errors.As(err, &te) || te.StatusCode != 429 {
		t.Fatalf("expected transient 429, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, Backoff{Attempts: 5, Base: time.Hour, Max: time.Hour}, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, Transient(errors.New("busy"), 503)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestBackoff_DelayCapped(t *testing.T) {
	b := Backoff{Attempts: 10, Base: 100 * time.Millisecond, Max: 300 * time.Millisecond, Factor: 2}
	if d := b.Delay(0); d != 100*time.Millisecond {
		t.Errorf("delay(0) = %s", d)
	}
	if d := b.Delay(6); d != 300*time.Millisecond {
		t.Errorf("delay(6) = %s", d)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("boom"), false},
		{Transient(errors.New("x"), 502), true},
		{fmt.Errorf("wrap: %w", Transient(errors.New("x"), 0)), true},
		{errors.New("read tcp: connection reset by peer"), true},
		{context.DeadlineExceeded, false},
		{fmt.Errorf("lookup: %w", context.Canceled), false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestTransientStatus(t *testing.T) {
	for _, code := range []int{429, 500, 503} {
		if !TransientStatus(code) {
			t.Errorf("%d should be transient", code)
		}
	}
	for _, code := range []int{200, 400, 404} {
		if TransientStatus(code) {
			t.Errorf("%d should not be transient", code)
		}
	}
}

func fail(context.Context) (int, error) { return 0, errors.New("down") }
func succeed(context.Context) (int, error) { return 1, nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("test", 2, time.Minute, nil)

	_, _ = Call(context.Background(), b, fail)
	if b.State() != Closed {
		t.Fatalf("expected closed, got %s", b.State())
	}
	_, _ = Call(context.Background(), b, fail)
	if b.State() != Open {
		t.Fatalf("expected open, got %s", b.State())
	}

	_, err := Call(context.Background(), b, func(context.Context) (int, error) {
		t.Error("should not be called while open")
		return 0, nil
	})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestBreaker_TrialCallClosesAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker("test", 1, time.Second, nil)
	b.now = func() time.Time { return now }

	_, _ = Call(context.Background(), b, fail)
	if b.State() != Open {
		t.Fatalf("expected open, got %s", b.State())
	}

	now = now.Add(2 * time.Second)
	if b.State() != HalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}

	v, err := Call(context.Background(), b, succeed)
	if err != nil || v != 1 {
		t.Fatalf("trial call failed: %v", err)
	}
	if b.State() != Closed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_FailedTrialCallReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker("test", 1, time.Second, nil)
	b.now = func() time.Time { return now }

	_, _ = Call(context.Background(), b, fail)
	now = now.Add(2 * time.Second)
	_, _ = Call(context.Background(), b, fail)

	if b.State() != Open {
		t.Errorf("expected open, got %s", b.State())
	}
}

func TestBreaker_IgnoresUncountedErrors(t *testing.T) {
	notFound := errors.New("not found")
	b := NewBreaker("test", 1, time.Minute, func(err error) bool { return !errors.Is(err, notFound) })

	for i := 0; i < 3; i++ {
		_, _ = Call(context.Background(), b, func(context.Context) (int, error) { return 0, notFound })
	}
	if b.State() != Closed {
		t.Errorf("expected closed, got %s", b.State())
	}
}
