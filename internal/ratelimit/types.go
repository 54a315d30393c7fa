// Package ratelimit tracks failed password-reset attempts per identity and
// locks the flow after too many failures inside a sliding window.
package ratelimit

import (
	"context"
	"time"
)

// Window bounds how long failures count, measured from the first failure.
const Window = 10 * time.Minute

// MaxFailures is the failure count that trips the lockout.
const MaxFailures = 5

// Result describes the outcome of a lockout check.
type Result struct {
	Blocked bool
	Reset   time.Time
}

// Limiter tracks reset-flow failures per identity.
type Limiter interface {
	// Blocked reports whether identity is locked out at now.
	Blocked(ctx context.Context, identity string, now time.Time) (Result, error)
	// Fail records a failed attempt for identity at now.
	Fail(ctx context.Context, identity string, now time.Time) error
	// Clear drops all tracking for identity.
	Clear(ctx context.Context, identity string) error
}
