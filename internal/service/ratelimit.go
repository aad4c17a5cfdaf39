package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/collectr-app/authgate/internal/logger"
	"github.com/collectr-app/authgate/internal/model"
)

// DefaultThreshold is the number of consecutive failures that triggers
// a lockout.
const DefaultThreshold = 5

// backoffSchedule holds lockout durations per completed lockout cycle.
// Identifiers past the end of the schedule stay at the last entry.
var backoffSchedule = []time.Duration{
	30 * time.Second,
	time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	time.Hour,
}

// RateLimiter tracks failed sign-in attempts per account identifier and
// computes lockout windows with progressive backoff. It is advisory:
// the authoritative limiter lives server-side, this one saves round
// trips and slows down local brute force.
type RateLimiter struct {
	store      model.AttemptStore
	threshold  int
	backoffCap time.Duration
	now        func() time.Time
	logger     *logger.Logger
}

// NewRateLimiter creates a limiter over the given attempt store.
// Non-positive threshold or cap fall back to the defaults.
func NewRateLimiter(store model.AttemptStore, threshold int, backoffCap time.Duration, logger *logger.Logger) *RateLimiter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if backoffCap <= 0 {
		backoffCap = time.Hour
	}
	return &RateLimiter{
		store:      store,
		threshold:  threshold,
		backoffCap: backoffCap,
		now:        time.Now,
		logger:     logger,
	}
}

// Check reports whether sign-in for the identifier is currently locked
// out. Pure read: no attempt accounting happens here. The limiter never
// blocks sign-in on a store failure; it degrades to "not blocked" and
// logs the error.
func (r *RateLimiter) Check(ctx context.Context, identifier string) model.RateLimitStatus {
	identifier = NormalizeIdentifier(identifier)

	attempt, err := r.store.Get(ctx, identifier)
	if errors.Is(err, model.ErrNotFound) {
		return model.RateLimitStatus{AttemptsRemaining: r.threshold}
	}
	if err != nil {
		r.logger.Error("rate limiter: failed to read attempt record",
			"identifier", identifier,
			"error", err.Error())
		return model.RateLimitStatus{AttemptsRemaining: r.threshold}
	}

	now := r.now()
	if attempt.LockoutUntil != nil && now.Before(*attempt.LockoutUntil) {
		return model.RateLimitStatus{
			Blocked:    true,
			RetryAfter: attempt.LockoutUntil.Sub(now),
		}
	}

	remaining := r.threshold - attempt.ConsecutiveFailures
	if remaining < 0 {
		remaining = 0
	}
	return model.RateLimitStatus{AttemptsRemaining: remaining}
}

// Record applies the outcome of a sign-in attempt. A success resets the
// identifier's record in one write; a failure increments the counter
// and, once the threshold is reached, starts a lockout whose duration
// grows with each completed lockout cycle.
func (r *RateLimiter) Record(ctx context.Context, identifier string, success bool) error {
	identifier = NormalizeIdentifier(identifier)
	now := r.now()

	attempt, err := r.store.Get(ctx, identifier)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to read attempt record: %w", err)
	}
	attempt.Identifier = identifier
	attempt.LastAttemptAt = now

	if success {
		attempt.ConsecutiveFailures = 0
		attempt.LockoutUntil = nil
		attempt.LockoutCycle = 0
	} else {
		attempt.ConsecutiveFailures++
		if attempt.ConsecutiveFailures >= r.threshold {
			until := now.Add(r.backoff(attempt.LockoutCycle))
			attempt.LockoutUntil = &until
			attempt.LockoutCycle++
			r.logger.Info("rate limiter: lockout started",
				"identifier", identifier,
				"failures", attempt.ConsecutiveFailures,
				"cycle", attempt.LockoutCycle,
				"until", until.Format(time.RFC3339))
		}
	}

	if err := r.store.Upsert(ctx, attempt); err != nil {
		return fmt.Errorf("failed to persist attempt record: %w", err)
	}
	return nil
}

// FormatMessage renders a status as user-facing text. Deterministic and
// side-effect free.
func (r *RateLimiter) FormatMessage(status model.RateLimitStatus) string {
	if status.Blocked {
		return fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(status.RetryAfter))
	}
	switch status.AttemptsRemaining {
	case 1:
		return "1 attempt remaining before temporary lockout."
	default:
		return fmt.Sprintf("%d attempts remaining before temporary lockout.", status.AttemptsRemaining)
	}
}

func (r *RateLimiter) backoff(cycle int) time.Duration {
	if cycle >= len(backoffSchedule) {
		cycle = len(backoffSchedule) - 1
	}
	d := backoffSchedule[cycle]
	if d > r.backoffCap {
		d = r.backoffCap
	}
	return d
}

// NormalizeIdentifier canonicalizes an account identifier for attempt
// accounting.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func formatDuration(d time.Duration) string {
	// Round up so "try again in 0 seconds" never shows while blocked.
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 60 {
		return fmt.Sprintf("%d seconds", secs)
	}
	mins := (secs + 59) / 60
	if mins < 60 {
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := (mins + 59) / 60
	return fmt.Sprintf("%d hours", hours)
}
