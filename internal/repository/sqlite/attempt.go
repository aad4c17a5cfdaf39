package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/collectr-app/authgate/internal/model"
)

// Ensure AttemptRepository implements the model.AttemptStore interface.
var _ model.AttemptStore = (*AttemptRepository)(nil)

type AttemptRepository struct {
	db *Connection
}

func NewAttemptRepository(db *Connection) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Get(ctx context.Context, identifier string) (model.LoginAttempt, error) {
	const query = `
        SELECT identifier, consecutive_failures, lockout_until, lockout_cycle, last_attempt_at
        FROM login_attempts
        WHERE identifier = ?
    `
	var (
		attempt      model.LoginAttempt
		lockoutUntil sql.NullTime
	)
	if err := r.db.QueryRowContext(ctx, query, identifier).Scan(
		&attempt.Identifier,
		&attempt.ConsecutiveFailures,
		&lockoutUntil,
		&attempt.LockoutCycle,
		&attempt.LastAttemptAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LoginAttempt{}, model.ErrNotFound
		}
		return model.LoginAttempt{}, fmt.Errorf("failed to get login attempt: %w", err)
	}

	if lockoutUntil.Valid {
		t := lockoutUntil.Time
		attempt.LockoutUntil = &t
	}
	return attempt, nil
}

func (r *AttemptRepository) Upsert(ctx context.Context, attempt model.LoginAttempt) error {
	const query = `
        INSERT INTO login_attempts (identifier, consecutive_failures, lockout_until, lockout_cycle, last_attempt_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (identifier) DO UPDATE SET
            consecutive_failures = excluded.consecutive_failures,
            lockout_until = excluded.lockout_until,
            lockout_cycle = excluded.lockout_cycle,
            last_attempt_at = excluded.last_attempt_at
    `

	var lockoutUntil sql.NullTime
	if attempt.LockoutUntil != nil {
		lockoutUntil = sql.NullTime{Time: *attempt.LockoutUntil, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query,
		attempt.Identifier,
		attempt.ConsecutiveFailures,
		lockoutUntil,
		attempt.LockoutCycle,
		attempt.LastAttemptAt,
	); err != nil {
		return fmt.Errorf("failed to upsert login attempt: %w", err)
	}
	return nil
}
