package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collectr-app/authgate/internal/logger"
	"github.com/collectr-app/authgate/internal/model"
	"github.com/collectr-app/authgate/internal/token"
)

// AuthSessionController composes the rate limiter, the MFA orchestrator
// and the identity provider into the sign-in state machine:
//
//	Idle -> Authenticating -> {Authenticated | MFAPending | Failed}
//	MFAPending -> {Authenticated | Idle}
//
// The controller assumes the caller serializes sign-in attempts for one
// identifier (e.g. by disabling the submit action while a call is in
// flight); it does not enforce mutual exclusion across attempts itself.
type AuthSessionController struct {
	limiter  *RateLimiter
	mfa      *MFAOrchestrator
	provider model.IdentityProvider
	secrets  model.SecretStore
	logger   *logger.Logger

	mu      sync.Mutex
	state   model.AuthState
	pending *model.PendingSession
	subs    map[int]func(model.StateChange)
	nextSub int
}

// NewAuthSessionController creates a controller in the Idle state.
func NewAuthSessionController(
	limiter *RateLimiter,
	mfa *MFAOrchestrator,
	provider model.IdentityProvider,
	secrets model.SecretStore,
	logger *logger.Logger,
) *AuthSessionController {
	return &AuthSessionController{
		limiter:  limiter,
		mfa:      mfa,
		provider: provider,
		secrets:  secrets,
		logger:   logger,
		state:    model.StateIdle,
		subs:     make(map[int]func(model.StateChange)),
	}
}

// State returns the current controller state.
func (c *AuthSessionController) State() model.AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a callback invoked synchronously on every state
// transition, in issue order. The returned function removes the
// subscription. Callbacks must not call back into the controller.
func (c *AuthSessionController) Subscribe(fn func(model.StateChange)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// SignIn runs one credential check behind the rate-limit gate.
//
// A blocked identifier fails immediately without contacting the
// provider and without attempt accounting. A wrong credential is
// recorded as a failure. Credential success with a verified second
// factor suspends the session in memory as MFAPending; nothing is
// persisted and no success is recorded until the factor is verified.
// Credential success without a verified factor finalizes the session.
//
// A factor-lookup failure fails closed: the provisional remote session
// is signed out and the attempt is not recorded at all, so a provider
// outage neither unlocks nor advances anyone's lockout accounting.
func (c *AuthSessionController) SignIn(ctx context.Context, identifier, credential string) (model.SignInResult, error) {
	if identifier == "" || credential == "" {
		return c.fail("email and password are required"),
			model.NewValidationError("missing identifier or credential")
	}
	identifier = NormalizeIdentifier(identifier)

	c.transition(model.StateAuthenticating)
	c.logger.Debug("session controller: sign-in started",
		"identifier", identifier)

	status := c.limiter.Check(ctx, identifier)
	if status.Blocked {
		c.logger.Info("session controller: sign-in blocked by rate limit",
			"identifier", identifier,
			"retry_after", status.RetryAfter.String())
		return c.fail(c.limiter.FormatMessage(status)), nil
	}

	cred, err := c.provider.VerifyCredentials(ctx, identifier, credential)
	if err != nil {
		if model.KindOf(err) == model.KindAuth {
			if recErr := c.limiter.Record(ctx, identifier, false); recErr != nil {
				c.logger.Error("session controller: failed to record attempt",
					"identifier", identifier,
					"error", recErr.Error())
			}
			return c.fail(model.MessageOf(err)), nil
		}
		return c.fail(model.MessageOf(err)), fmt.Errorf("credential check failed: %w", err)
	}

	factors, err := c.mfa.Factors(ctx, cred.AccessToken)
	if err != nil {
		c.signOutRemote(ctx, cred.AccessToken)
		return c.fail(model.MessageOf(err)), fmt.Errorf("factor lookup failed: %w", err)
	}

	if factorID, ok := verifiedFactor(factors); ok {
		c.mu.Lock()
		c.pending = &model.PendingSession{
			Identifier: identifier,
			Credential: cred,
			FactorID:   factorID,
			StartedAt:  time.Now(),
		}
		c.mu.Unlock()
		c.transition(model.StateMFAPending)

		c.logger.Info("session controller: second factor required",
			"identifier", identifier,
			"factor_id", factorID)

		return model.SignInResult{
			State:       model.StateMFAPending,
			MFARequired: true,
			FactorID:    factorID,
			UserID:      cred.UserID,
			Message:     "enter the code from your authenticator app",
		}, nil
	}

	if err := c.finalize(ctx, identifier, cred); err != nil {
		c.signOutRemote(ctx, cred.AccessToken)
		return c.fail("could not complete sign-in"), err
	}

	c.logger.Info("session controller: signed in",
		"identifier", identifier,
		"user_id", cred.UserID.String())

	return model.SignInResult{
		State:  model.StateAuthenticated,
		UserID: cred.UserID,
	}, nil
}

// CompleteMFA finalizes the pending session. It must be called only
// after the orchestrator reported verified=true for the pending factor.
func (c *AuthSessionController) CompleteMFA(ctx context.Context) (model.SignInResult, error) {
	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()

	if pending == nil {
		return model.SignInResult{State: c.State()}, model.ErrNoPendingSession
	}

	if err := c.finalize(ctx, pending.Identifier, pending.Credential); err != nil {
		return model.SignInResult{State: c.State()}, err
	}

	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()

	c.logger.Info("session controller: MFA completed",
		"identifier", pending.Identifier,
		"user_id", pending.Credential.UserID.String())

	return model.SignInResult{
		State:  model.StateAuthenticated,
		UserID: pending.Credential.UserID,
	}, nil
}

// CancelMFA abandons a pending second-factor verification. Idempotent
// and safe at any point after SignIn reported MFA required: it signs
// out the provisionally established remote session, drops the pending
// state and removes any persisted identity keys, always converging to
// "no session, no pending state".
func (c *AuthSessionController) CancelMFA(ctx context.Context) error {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if pending != nil {
		c.signOutRemote(ctx, pending.Credential.AccessToken)
		c.logger.Info("session controller: MFA cancelled",
			"identifier", pending.Identifier)
	}

	if err := c.secrets.DeleteNamespace(ctx, model.NamespaceIdentity); err != nil {
		return fmt.Errorf("failed to clear identity state: %w", err)
	}

	c.transition(model.StateIdle)
	return nil
}

// SignOut invalidates the remote session and wipes the identity
// namespace.
func (c *AuthSessionController) SignOut(ctx context.Context) error {
	var cred model.SessionCredential
	err := c.secrets.GetJSON(ctx, model.KeyUserSession, &cred)
	if err == nil {
		c.signOutRemote(ctx, cred.AccessToken)
	} else if !errors.Is(err, model.ErrNotFound) {
		c.logger.Error("session controller: failed to read stored session",
			"error", err.Error())
	}

	if err := c.secrets.DeleteNamespace(ctx, model.NamespaceIdentity); err != nil {
		return fmt.Errorf("failed to clear identity state: %w", err)
	}

	c.transition(model.StateIdle)
	c.logger.Info("session controller: signed out")
	return nil
}

// Restore loads a persisted session on process start. A missing or
// expired session leaves the controller Idle; an expired one is also
// wiped so no stale credential lingers at rest.
func (c *AuthSessionController) Restore(ctx context.Context) (bool, error) {
	var cred model.SessionCredential
	err := c.secrets.GetJSON(ctx, model.KeyUserSession, &cred)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read stored session: %w", err)
	}

	expiry, err := token.ExtractExpiry(cred.AccessToken)
	if err != nil || time.Now().After(expiry) {
		if delErr := c.secrets.DeleteNamespace(ctx, model.NamespaceIdentity); delErr != nil {
			return false, fmt.Errorf("failed to clear expired session: %w", delErr)
		}
		c.logger.Info("session controller: stored session expired, cleared")
		return false, nil
	}

	c.transition(model.StateAuthenticated)
	c.logger.Info("session controller: session restored",
		"user_id", cred.UserID.String())
	return true, nil
}

// Session returns the persisted session credential, if any.
func (c *AuthSessionController) Session(ctx context.Context) (model.SessionCredential, error) {
	var cred model.SessionCredential
	if err := c.secrets.GetJSON(ctx, model.KeyUserSession, &cred); err != nil {
		return model.SessionCredential{}, err
	}
	return cred, nil
}

// ValidateAccessToken checks a presented token against the persisted
// session and returns the session's user ID. The gateway cannot verify
// remote provider signatures locally, so possession of the stored
// session token is the bar.
func (c *AuthSessionController) ValidateAccessToken(ctx context.Context, accessToken string) (uuid.UUID, error) {
	var cred model.SessionCredential
	if err := c.secrets.GetJSON(ctx, model.KeyUserSession, &cred); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return uuid.Nil, model.NewAuthError("no active session")
		}
		return uuid.Nil, fmt.Errorf("failed to read stored session: %w", err)
	}
	if cred.AccessToken == "" || cred.AccessToken != accessToken {
		return uuid.Nil, model.NewAuthError("invalid session token")
	}
	return cred.UserID, nil
}

// PendingAccessToken exposes the provisional session token while MFA is
// pending, so the challenge and verify calls can authenticate to the
// provider.
func (c *AuthSessionController) PendingAccessToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return "", false
	}
	return c.pending.Credential.AccessToken, true
}

// finalize persists the session credential and records the attempt as
// successful. Ordering matters: persistence first, so a write failure
// never leaves a recorded success without a stored session.
func (c *AuthSessionController) finalize(ctx context.Context, identifier string, cred model.SessionCredential) error {
	if err := c.secrets.Save(ctx, model.KeyUserID, cred.UserID.String()); err != nil {
		return fmt.Errorf("failed to persist user id: %w", err)
	}
	if err := c.secrets.SaveJSON(ctx, model.KeyUserSession, cred); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	if err := c.limiter.Record(ctx, identifier, true); err != nil {
		c.logger.Error("session controller: failed to record successful attempt",
			"identifier", identifier,
			"error", err.Error())
	}

	c.transition(model.StateAuthenticated)
	return nil
}

func (c *AuthSessionController) fail(message string) model.SignInResult {
	c.transition(model.StateFailed)
	return model.SignInResult{State: model.StateFailed, Message: message}
}

func (c *AuthSessionController) signOutRemote(ctx context.Context, accessToken string) {
	if err := c.provider.SignOut(ctx, accessToken); err != nil {
		c.logger.Error("session controller: remote sign-out failed",
			"error", err.Error())
	}
}

func (c *AuthSessionController) transition(to model.AuthState) {
	c.mu.Lock()
	from := c.state
	c.state = to
	var subs []func(model.StateChange)
	if from != to {
		subs = make([]func(model.StateChange), 0, len(c.subs))
		for _, fn := range c.subs {
			subs = append(subs, fn)
		}
	}
	c.mu.Unlock()

	if from == to {
		return
	}
	change := model.StateChange{From: from, To: to}
	for _, fn := range subs {
		fn(change)
	}
}

func verifiedFactor(factors []model.MFAFactor) (string, bool) {
	for _, f := range factors {
		if f.Status == model.FactorVerified {
			return f.ID, true
		}
	}
	return "", false
}
