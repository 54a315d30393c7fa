package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_BlocksAfterMaxFailures(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxFailures; i++ {
		res, errBlocked := l.Blocked(ctx, "a@x.com", now)
		if errBlocked != nil {
			t.Fatalf("blocked: %v", errBlocked)
		}
		if res.Blocked {
			t.Fatalf("blocked too early at failure %d", i)
		}
		if errFail := l.Fail(ctx, "a@x.com", now); errFail != nil {
			t.Fatalf("fail: %v", errFail)
		}
		now = now.Add(time.Second)
	}

	res, errBlocked := l.Blocked(ctx, "a@x.com", now)
	if errBlocked != nil {
		t.Fatalf("blocked: %v", errBlocked)
	}
	if !res.Blocked {
		t.Fatalf("expected lockout after %d failures", MaxFailures)
	}
	wantReset := time.Date(2025, 1, 1, 0, 10, 0, 0, time.UTC)
	if !res.Reset.Equal(wantReset) {
		t.Fatalf("expected reset at %s, got %s", wantReset, res.Reset)
	}
}

func TestMemoryLimiter_WindowElapsesFromFirstFailure(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxFailures; i++ {
		if errFail := l.Fail(ctx, "a@x.com", first.Add(time.Duration(i)*time.Second)); errFail != nil {
			t.Fatalf("fail: %v", errFail)
		}
	}

	res, errBlocked := l.Blocked(ctx, "a@x.com", first.Add(9*time.Minute))
	if errBlocked != nil {
		t.Fatalf("blocked: %v", errBlocked)
	}
	if !res.Blocked {
		t.Fatalf("expected lockout inside window")
	}

	res, errBlocked = l.Blocked(ctx, "a@x.com", first.Add(Window))
	if errBlocked != nil {
		t.Fatalf("blocked: %v", errBlocked)
	}
	if res.Blocked {
		t.Fatalf("expected window to reset after %s", Window)
	}
}

func TestMemoryLimiter_FailAfterWindowStartsNewWindow(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxFailures; i++ {
		if errFail := l.Fail(ctx, "a@x.com", first); errFail != nil {
			t.Fatalf("fail: %v", errFail)
		}
	}

	later := first.Add(Window + time.Minute)
	if errFail := l.Fail(ctx, "a@x.com", later); errFail != nil {
		t.Fatalf("fail: %v", errFail)
	}
	res, errBlocked := l.Blocked(ctx, "a@x.com", later)
	if errBlocked != nil {
		t.Fatalf("blocked: %v", errBlocked)
	}
	if res.Blocked {
		t.Fatalf("expected one failure in a fresh window not to block")
	}
}

func TestMemoryLimiter_ClearResets(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxFailures; i++ {
		if errFail := l.Fail(ctx, "a@x.com", now); errFail != nil {
			t.Fatalf("fail: %v", errFail)
		}
	}
	if errClear := l.Clear(ctx, "a@x.com"); errClear != nil {
		t.Fatalf("clear: %v", errClear)
	}
	res, errBlocked := l.Blocked(ctx, "a@x.com", now)
	if errBlocked != nil {
		t.Fatalf("blocked: %v", errBlocked)
	}
	if res.Blocked {
		t.Fatalf("expected clear to lift the lockout")
	}
}
