package model

import (
	"time"

	"github.com/google/uuid"
)

// AuthState is the observable state of the session controller.
type AuthState string

const (
	StateIdle           AuthState = "idle"
	StateAuthenticating AuthState = "authenticating"
	StateAuthenticated  AuthState = "authenticated"
	StateMFAPending     AuthState = "mfa_pending"
	StateFailed         AuthState = "failed"
)

// StateChange is delivered to subscribers on every controller
// transition, in issue order.
type StateChange struct {
	From AuthState
	To   AuthState
}

// SessionCredential is an opaque provider-issued session token bound to
// a user. Owned exclusively by the credential store once finalized.
type SessionCredential struct {
	UserID      uuid.UUID `json:"user_id"`
	AccessToken string    `json:"access_token"`
	IssuedAt    time.Time `json:"issued_at"`
}

// PendingSession links a credential-verified but not-yet-MFA-verified
// sign-in to the factor awaiting verification. In-memory only; it exists
// between credential success and MFA completion or cancellation and is
// never persisted.
type PendingSession struct {
	Identifier string
	Credential SessionCredential
	FactorID   string
	StartedAt  time.Time
}

// SignInResult is the structured outcome of a sign-in request.
type SignInResult struct {
	State       AuthState
	MFARequired bool
	FactorID    string
	UserID      uuid.UUID
	Message     string
}

// Preferences is the typed local configuration record kept in the
// credential store.
type Preferences struct {
	NotificationsEnabled bool `json:"notifications_enabled"`
}
