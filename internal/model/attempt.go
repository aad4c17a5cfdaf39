package model

import (
	"context"
	"time"
)

// AttemptStore persists per-identifier login attempt accounting.
type AttemptStore interface {
	Get(ctx context.Context, identifier string) (LoginAttempt, error)
	Upsert(ctx context.Context, attempt LoginAttempt) error
}

// LoginAttempt tracks consecutive sign-in failures for one normalized
// account identifier. One record per identifier, created on first
// failure, reset on success. LockoutUntil is an absolute end timestamp
// so the lockout stays correct across process restarts.
type LoginAttempt struct {
	Identifier          string
	ConsecutiveFailures int
	LockoutUntil        *time.Time
	LockoutCycle        int
	LastAttemptAt       time.Time
}

// RateLimitStatus is the read-only result of a rate-limit check.
type RateLimitStatus struct {
	Blocked           bool
	AttemptsRemaining int
	RetryAfter        time.Duration
}
