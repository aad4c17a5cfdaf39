package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/collectr-app/authgate/internal/logger"
	"github.com/collectr-app/authgate/internal/model"
)

// SessionController defines the sign-in lifecycle operations.
type SessionController interface {
	SignIn(ctx context.Context, identifier, credential string) (model.SignInResult, error)
	CompleteMFA(ctx context.Context) (model.SignInResult, error)
	CancelMFA(ctx context.Context) error
	SignOut(ctx context.Context) error
	Restore(ctx context.Context) (bool, error)
	PendingAccessToken() (string, bool)
	State() model.AuthState
}

// RateLimitService defines the read-only rate-limit operations.
type RateLimitService interface {
	Check(ctx context.Context, identifier string) model.RateLimitStatus
	FormatMessage(status model.RateLimitStatus) string
}

// Auth handles HTTP endpoints for the sign-in lifecycle.
type Auth struct {
	controller SessionController
	limiter    RateLimitService
	logger     *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(controller SessionController, limiter RateLimitService, logger *logger.Logger) *Auth {
	return &Auth{
		controller: controller,
		limiter:    limiter,
		logger:     logger,
	}
}

type signInRequest struct {
	Identifier string `json:"identifier"`
	Credential string `json:"credential"`
}

type signInResponse struct {
	State       string `json:"state"`
	MFARequired bool   `json:"mfa_required"`
	FactorID    string `json:"factor_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	Message     string `json:"message,omitempty"`
}

// SignIn runs a credential check behind the rate-limit gate.
func (h *Auth) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	result, err := h.controller.SignIn(r.Context(), req.Identifier, req.Credential)
	if err != nil {
		h.logger.Error("auth handler: sign-in failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSignInResponse(result))
}

// CompleteMFA finalizes an MFA-pending session.
func (h *Auth) CompleteMFA(w http.ResponseWriter, r *http.Request) {
	result, err := h.controller.CompleteMFA(r.Context())
	if err != nil {
		h.logger.Error("auth handler: MFA completion failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSignInResponse(result))
}

// CancelMFA abandons an MFA-pending session.
func (h *Auth) CancelMFA(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.CancelMFA(r.Context()); err != nil {
		h.logger.Error("auth handler: MFA cancellation failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SignOut invalidates the current session.
func (h *Auth) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.SignOut(r.Context()); err != nil {
		h.logger.Error("auth handler: sign-out failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type rateLimitResponse struct {
	Blocked           bool   `json:"blocked"`
	AttemptsRemaining int    `json:"attempts_remaining"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
	Message           string `json:"message"`
}

// RateLimit reports the rate-limit status for an identifier.
func (h *Auth) RateLimit(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		handleError(w, model.NewValidationError("missing identifier"))
		return
	}

	status := h.limiter.Check(r.Context(), identifier)
	writeJSON(w, http.StatusOK, rateLimitResponse{
		Blocked:           status.Blocked,
		AttemptsRemaining: status.AttemptsRemaining,
		RetryAfterSeconds: int(status.RetryAfter.Seconds()),
		Message:           h.limiter.FormatMessage(status),
	})
}

func toSignInResponse(result model.SignInResult) signInResponse {
	resp := signInResponse{
		State:       string(result.State),
		MFARequired: result.MFARequired,
		FactorID:    result.FactorID,
		Message:     result.Message,
	}
	if result.UserID != uuid.Nil {
		resp.UserID = result.UserID.String()
	}
	return resp
}
