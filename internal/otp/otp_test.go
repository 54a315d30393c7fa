package otp

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func newTestManager(now *time.Time) *Manager {
	return NewManager(NewMemoryStore(), func() time.Time { return *now })
}

func TestGenerate_FourDigits(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil)
	for i := 0; i < 100; i++ {
		code, err := m.Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		n, errConv := strconv.Atoi(code)
		if errConv != nil {
			t.Fatalf("non-numeric code %q", code)
		}
		if n < 1000 || n > 9999 {
			t.Fatalf("code %d out of range", n)
		}
	}
}

func TestVerifyBasic_SingleUse(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(&now)
	ctx := context.Background()

	if errStore := m.StoreCode(ctx, "a@x.com", "1234"); errStore != nil {
		t.Fatalf("store: %v", errStore)
	}

	ok, err := m.VerifyBasic(ctx, "a@x.com", "9999")
	if err != nil || ok {
		t.Fatalf("expected mismatch to fail, got ok=%v err=%v", ok, err)
	}
	ok, err = m.VerifyBasic(ctx, "a@x.com", "1234")
	if err != nil || !ok {
		t.Fatalf("expected match to succeed, got ok=%v err=%v", ok, err)
	}
	ok, err = m.VerifyBasic(ctx, "a@x.com", "1234")
	if err != nil || ok {
		t.Fatalf("expected replay to fail, got ok=%v err=%v", ok, err)
	}
}

func TestVerifyBasic_ExpiryPurges(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(&now)
	ctx := context.Background()

	if errStore := m.StoreCode(ctx, "a@x.com", "1234"); errStore != nil {
		t.Fatalf("store: %v", errStore)
	}
	now = now.Add(CodeTTL + time.Second)

	ok, err := m.VerifyBasic(ctx, "a@x.com", "1234")
	if err != nil || ok {
		t.Fatalf("expected expired code to fail, got ok=%v err=%v", ok, err)
	}

	res, errVerify := m.Verify(ctx, "a@x.com", "1234")
	if errVerify != nil {
		t.Fatalf("verify: %v", errVerify)
	}
	if res.Reason != ReasonNotFound {
		t.Fatalf("expected record purged after expiry, got reason %q", res.Reason)
	}
}

func TestVerify_HardenedLifecycle(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(&now)
	ctx := context.Background()

	res, err := m.Verify(ctx, "a@x.com", "1234")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.OK || res.Reason != ReasonNotFound {
		t.Fatalf("expected not-found, got %+v", res)
	}

	if errStore := m.StoreCode(ctx, "a@x.com", "1234"); errStore != nil {
		t.Fatalf("store: %v", errStore)
	}

	res, err = m.Verify(ctx, "a@x.com", "9999")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.OK || res.Reason != ReasonInvalidCode {
		t.Fatalf("expected invalid code, got %+v", res)
	}

	res, err = m.Verify(ctx, "a@x.com", "1234")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.OK || res.Reason != ReasonVerified {
		t.Fatalf("expected success, got %+v", res)
	}

	res, err = m.Verify(ctx, "a@x.com", "1234")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.OK || res.Reason != ReasonNotFound {
		t.Fatalf("expected single use, got %+v", res)
	}
}

func TestVerify_LockoutAfterFiveFailures(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(&now)
	ctx := context.Background()

	if errStore := m.StoreCode(ctx, "a@x.com", "1234"); errStore != nil {
		t.Fatalf("store: %v", errStore)
	}

	for i := 0; i < 5; i++ {
		res, err := m.Verify(ctx, "a@x.com", "0000")
		if err != nil {
			t.Fatalf("verify %d: %v", i, err)
		}
		if res.Reason != ReasonInvalidCode {
			t.Fatalf("verify %d: expected invalid code, got %+v", i, res)
		}
	}

	// Locked out even with the right code.
	res, err := m.Verify(ctx, "a@x.com", "1234")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.OK || res.Reason != ReasonTooMany {
		t.Fatalf("expected lockout, got %+v", res)
	}

	// A fresh issuance resets the counter.
	if errStore := m.StoreCode(ctx, "a@x.com", "5678"); errStore != nil {
		t.Fatalf("store: %v", errStore)
	}
	res, err = m.Verify(ctx, "a@x.com", "5678")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected success after reissue, got %+v", res)
	}
}

func TestStoreCode_OverwritesPriorCode(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(&now)
	ctx := context.Background()

	if errStore := m.StoreCode(ctx, "a@x.com", "1111"); errStore != nil {
		t.Fatalf("store: %v", errStore)
	}
	if errStore := m.StoreCode(ctx, "a@x.com", "2222"); errStore != nil {
		t.Fatalf("store: %v", errStore)
	}

	ok, err := m.VerifyBasic(ctx, "a@x.com", "1111")
	if err != nil || ok {
		t.Fatalf("expected overwritten code to be invalid, got ok=%v err=%v", ok, err)
	}
	ok, err = m.VerifyBasic(ctx, "a@x.com", "2222")
	if err != nil || !ok {
		t.Fatalf("expected new code to verify, got ok=%v err=%v", ok, err)
	}
}
