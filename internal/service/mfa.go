package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/collectr-app/authgate/internal/logger"
	"github.com/collectr-app/authgate/internal/model"
)

// MFAOrchestrator drives the enroll, challenge and verify steps of the
// second-factor protocol against the identity provider and tracks which
// challenge is live for each factor. Challenge issuance is
// last-writer-wins: a new challenge silently invalidates the previous
// unconsumed one, and verification checks liveness of the presented
// challenge id instead of trusting the caller.
type MFAOrchestrator struct {
	provider model.IdentityProvider
	secrets  model.SecretStore
	logger   *logger.Logger

	mu   sync.Mutex
	live map[string]string // factor id -> live challenge id
}

// NewMFAOrchestrator creates a new orchestrator.
func NewMFAOrchestrator(provider model.IdentityProvider, secrets model.SecretStore, logger *logger.Logger) *MFAOrchestrator {
	return &MFAOrchestrator{
		provider: provider,
		secrets:  secrets,
		logger:   logger,
		live:     make(map[string]string),
	}
}

// StartEnrollment requests a new factor from the identity provider. The
// factor is unverified until a challenge against it is verified; the
// shared secret and QR payload are returned to the caller for
// authenticator setup and never stored locally.
func (o *MFAOrchestrator) StartEnrollment(ctx context.Context, accessToken string) (model.Enrollment, error) {
	o.logger.Debug("MFA orchestrator: starting enrollment")

	enrollment, err := o.provider.EnrollFactor(ctx, accessToken)
	if err != nil {
		o.logger.Error("MFA orchestrator: enrollment failed",
			"error", err.Error())
		return model.Enrollment{}, fmt.Errorf("failed to enroll factor: %w", err)
	}

	o.logger.Info("MFA orchestrator: factor enrolled",
		"factor_id", enrollment.FactorID)

	return enrollment, nil
}

// Challenge issues a new single-use challenge for the factor,
// invalidating any previously issued unconsumed challenge.
func (o *MFAOrchestrator) Challenge(ctx context.Context, accessToken, factorID string) (model.MFAChallenge, error) {
	if factorID == "" {
		return model.MFAChallenge{}, model.NewValidationError("missing factor id")
	}

	challengeID, err := o.provider.CreateChallenge(ctx, accessToken, factorID)
	if err != nil {
		o.logger.Error("MFA orchestrator: challenge creation failed",
			"factor_id", factorID,
			"error", err.Error())
		return model.MFAChallenge{}, fmt.Errorf("failed to create challenge: %w", err)
	}

	o.mu.Lock()
	o.live[factorID] = challengeID
	o.mu.Unlock()

	o.logger.Debug("MFA orchestrator: challenge issued",
		"factor_id", factorID)

	return model.MFAChallenge{
		ID:       challengeID,
		FactorID: factorID,
		IssuedAt: time.Now(),
	}, nil
}

// Verify submits a code against a specific challenge. A challenge id
// that is not the live one for the factor reports verified=false
// without touching any state, which protects against stale UI
// resubmission. A live challenge is consumed by the verify attempt
// whether or not the code was right; a wrong code therefore requires a
// fresh Challenge call (the "resend code" path). On success the factor
// id is persisted so future sign-ins require the second factor.
func (o *MFAOrchestrator) Verify(ctx context.Context, accessToken, factorID, challengeID, code string) (bool, error) {
	if factorID == "" {
		return false, model.NewValidationError("missing factor id")
	}
	if challengeID == "" {
		return false, model.NewValidationError("missing challenge id")
	}

	o.mu.Lock()
	liveID, ok := o.live[factorID]
	o.mu.Unlock()
	if !ok || liveID != challengeID {
		o.logger.Debug("MFA orchestrator: stale challenge presented",
			"factor_id", factorID)
		return false, nil
	}

	verified, err := o.provider.VerifyChallenge(ctx, accessToken, factorID, challengeID, code)
	if err != nil {
		// The challenge may still be live on the provider side, so its
		// local liveness is kept for a retry.
		o.logger.Error("MFA orchestrator: verification failed",
			"factor_id", factorID,
			"error", err.Error())
		return false, fmt.Errorf("failed to verify challenge: %w", err)
	}

	o.mu.Lock()
	delete(o.live, factorID)
	o.mu.Unlock()

	if !verified {
		o.logger.Info("MFA orchestrator: wrong code, challenge consumed",
			"factor_id", factorID)
		return false, nil
	}

	if err := o.secrets.Save(ctx, model.KeyMFAFactorID, factorID); err != nil {
		return false, fmt.Errorf("failed to persist verified factor: %w", err)
	}

	o.logger.Info("MFA orchestrator: factor verified",
		"factor_id", factorID)

	return true, nil
}

// Enabled reports whether a verified factor is known locally.
func (o *MFAOrchestrator) Enabled(ctx context.Context) (bool, error) {
	factorID, err := o.secrets.Get(ctx, model.KeyMFAFactorID)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read factor id: %w", err)
	}
	return factorID != "", nil
}

// Factors lists the user's registered factors from the provider.
func (o *MFAOrchestrator) Factors(ctx context.Context, accessToken string) ([]model.MFAFactor, error) {
	factors, err := o.provider.ListFactors(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list factors: %w", err)
	}
	return factors, nil
}

// Forget drops the locally persisted factor id. Called on sign-out and
// MFA cancellation through the identity namespace; exposed for factor
// unenrollment.
func (o *MFAOrchestrator) Forget(ctx context.Context) error {
	if err := o.secrets.Delete(ctx, model.KeyMFAFactorID); err != nil {
		return fmt.Errorf("failed to forget factor id: %w", err)
	}
	return nil
}
