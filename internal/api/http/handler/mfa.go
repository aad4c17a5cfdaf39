package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/collectr-app/authgate/internal/logger"
	"github.com/collectr-app/authgate/internal/model"
)

// MFAService defines the second-factor protocol operations.
type MFAService interface {
	StartEnrollment(ctx context.Context, accessToken string) (model.Enrollment, error)
	Challenge(ctx context.Context, accessToken, factorID string) (model.MFAChallenge, error)
	Verify(ctx context.Context, accessToken, factorID, challengeID, code string) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Factors(ctx context.Context, accessToken string) ([]model.MFAFactor, error)
}

// MFA handles HTTP endpoints for factor enrollment and verification.
type MFA struct {
	mfa        MFAService
	controller SessionController
	logger     *logger.Logger
}

// NewMFA creates a new MFA handler.
func NewMFA(mfa MFAService, controller SessionController, logger *logger.Logger) *MFA {
	return &MFA{
		mfa:        mfa,
		controller: controller,
		logger:     logger,
	}
}

type enrollResponse struct {
	FactorID     string `json:"factor_id"`
	SharedSecret string `json:"shared_secret"`
	QRPayload    string `json:"qr_payload"`
}

// Enroll requests a new factor for the authenticated user.
func (h *MFA) Enroll(w http.ResponseWriter, r *http.Request) {
	token, err := h.accessToken(r)
	if err != nil {
		handleError(w, err)
		return
	}

	enrollment, err := h.mfa.StartEnrollment(r.Context(), token)
	if err != nil {
		h.logger.Error("MFA handler: enrollment failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, enrollResponse{
		FactorID:     enrollment.FactorID,
		SharedSecret: enrollment.SharedSecret,
		QRPayload:    enrollment.QRPayload,
	})
}

type challengeRequest struct {
	FactorID string `json:"factor_id"`
}

type challengeResponse struct {
	ChallengeID string `json:"challenge_id"`
}

// Challenge issues a fresh single-use challenge for a factor.
func (h *MFA) Challenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	token, err := h.accessToken(r)
	if err != nil {
		handleError(w, err)
		return
	}

	challenge, err := h.mfa.Challenge(r.Context(), token, req.FactorID)
	if err != nil {
		h.logger.Error("MFA handler: challenge failed",
			"factor_id", req.FactorID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, challengeResponse{ChallengeID: challenge.ID})
}

type verifyRequest struct {
	FactorID    string `json:"factor_id"`
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}

type verifyResponse struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message,omitempty"`
}

// Verify submits a code against a challenge.
func (h *MFA) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	token, err := h.accessToken(r)
	if err != nil {
		handleError(w, err)
		return
	}

	verified, err := h.mfa.Verify(r.Context(), token, req.FactorID, req.ChallengeID, req.Code)
	if err != nil {
		h.logger.Error("MFA handler: verification failed",
			"factor_id", req.FactorID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	resp := verifyResponse{Verified: verified}
	if !verified {
		resp.Message = "code incorrect, request a new one"
	}
	writeJSON(w, http.StatusOK, resp)
}

type statusResponse struct {
	Enabled bool `json:"enabled"`
}

// Status reports whether a verified factor gates sign-in.
func (h *MFA) Status(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.mfa.Enabled(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Enabled: enabled})
}

// accessToken resolves the provider session token for an MFA call: the
// provisional pending-session token while MFA is pending, the bearer
// token otherwise (enrollment on an established session).
func (h *MFA) accessToken(r *http.Request) (string, error) {
	if token, ok := h.controller.PendingAccessToken(); ok {
		return token, nil
	}
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if bearer == "" {
		return "", model.NewAuthError("missing authorization token")
	}
	return bearer, nil
}
