// Package otp issues and verifies the one-time passcodes used by the
// password-reset flow.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// CodeTTL is how long an issued passcode stays valid.
const CodeTTL = 10 * time.Minute

// maxAttempts caps failed verifications per code under the hardened policy.
const maxAttempts = 5

// Verification outcome reasons under the hardened policy.
const (
	ReasonVerified    = "OTP verified"
	ReasonNotFound    = "No OTP found for this email"
	ReasonExpired     = "OTP has expired"
	ReasonTooMany     = "Too many failed attempts. Request a new OTP."
	ReasonInvalidCode = "Invalid OTP"
)

// Record is a stored passcode with its expiry.
type Record struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists passcode records and failed-attempt counters. Backends must
// be safe for concurrent use.
type Store interface {
	// Get returns the record for identity, or nil when absent.
	Get(ctx context.Context, identity string) (*Record, error)
	// Put creates or replaces the record for identity.
	Put(ctx context.Context, identity string, rec Record) error
	// Delete removes the record for identity.
	Delete(ctx context.Context, identity string) error
	// Attempts returns the failed-attempt count for identity.
	Attempts(ctx context.Context, identity string) (int, error)
	// IncrementAttempts bumps and returns the failed-attempt count.
	IncrementAttempts(ctx context.Context, identity string) (int, error)
	// ResetAttempts clears the failed-attempt count for identity.
	ResetAttempts(ctx context.Context, identity string) error
}

// Result reports a hardened-policy verification outcome.
type Result struct {
	OK     bool
	Reason string
}

// Manager generates, stores, and verifies passcodes against a Store.
type Manager struct {
	store Store
	nowFn func() time.Time
}

// NewManager constructs a Manager. A nil nowFn defaults to time.Now.
func NewManager(store Store, nowFn func() time.Time) *Manager {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Manager{store: store, nowFn: nowFn}
}

// Generate draws a 4-digit code in [1000, 9999] from a CSPRNG.
func (m *Manager) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("otp: generate: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+1000), nil
}

// StoreCode replaces any prior passcode for identity and zeroes its
// attempt counter. A previously issued, unexpired code becomes invalid.
func (m *Manager) StoreCode(ctx context.Context, identity, code string) error {
	rec := Record{Code: code, ExpiresAt: m.nowFn().Add(CodeTTL)}
	if errPut := m.store.Put(ctx, identity, rec); errPut != nil {
		return errPut
	}
	return m.store.ResetAttempts(ctx, identity)
}

// Issue generates, stores, and returns a fresh passcode for identity.
func (m *Manager) Issue(ctx context.Context, identity string) (string, error) {
	code, errGen := m.Generate()
	if errGen != nil {
		return "", errGen
	}
	if errStore := m.StoreCode(ctx, identity, code); errStore != nil {
		return "", errStore
	}
	return code, nil
}

// VerifyBasic applies the basic policy: a missing record or mismatch is
// false, an expired record is purged and false, a match purges the record
// (single use) and is true. No attempt tracking.
func (m *Manager) VerifyBasic(ctx context.Context, identity, submitted string) (bool, error) {
	rec, errGet := m.store.Get(ctx, identity)
	if errGet != nil {
		return false, errGet
	}
	if rec == nil {
		return false, nil
	}
	if m.nowFn().After(rec.ExpiresAt) {
		if errDel := m.store.Delete(ctx, identity); errDel != nil {
			return false, errDel
		}
		return false, nil
	}
	if rec.Code != submitted {
		return false, nil
	}
	if errDel := m.store.Delete(ctx, identity); errDel != nil {
		return false, errDel
	}
	return true, nil
}

// Verify applies the hardened policy: lockout after maxAttempts failures is
// checked before consuming an attempt, and a match purges both the record
// and the counter.
func (m *Manager) Verify(ctx context.Context, identity, submitted string) (Result, error) {
	rec, errGet := m.store.Get(ctx, identity)
	if errGet != nil {
		return Result{}, errGet
	}
	if rec == nil {
		return Result{Reason: ReasonNotFound}, nil
	}
	if m.nowFn().After(rec.ExpiresAt) {
		if errDel := m.store.Delete(ctx, identity); errDel != nil {
			return Result{}, errDel
		}
		return Result{Reason: ReasonExpired}, nil
	}

	attempts, errAttempts := m.store.Attempts(ctx, identity)
	if errAttempts != nil {
		return Result{}, errAttempts
	}
	if attempts >= maxAttempts {
		return Result{Reason: ReasonTooMany}, nil
	}
	if _, errIncr := m.store.IncrementAttempts(ctx, identity); errIncr != nil {
		return Result{}, errIncr
	}

	if rec.Code != submitted {
		return Result{Reason: ReasonInvalidCode}, nil
	}
	if errDel := m.store.Delete(ctx, identity); errDel != nil {
		return Result{}, errDel
	}
	if errReset := m.store.ResetAttempts(ctx, identity); errReset != nil {
		return Result{}, errReset
	}
	return Result{OK: true, Reason: ReasonVerified}, nil
}
