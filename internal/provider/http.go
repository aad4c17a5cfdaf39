package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/collectr-app/authgate/internal/logger"
	"github.com/collectr-app/authgate/internal/model"
)

// Ensure HTTPProvider implements the model.IdentityProvider interface.
var _ model.IdentityProvider = (*HTTPProvider)(nil)

// HTTPProvider talks to the remote identity service over its JSON REST
// API. It translates transport and status failures into the error
// taxonomy: bad credentials become AUTH, unreachable provider becomes
// NETWORK, unexpected response shapes become UNKNOWN.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logger.Logger
}

// NewHTTPProvider creates a provider client for the given base URL.
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration, logger *logger.Logger) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type signInRequest struct {
	Identifier string `json:"identifier"`
	Credential string `json:"credential"`
}

type signInResponse struct {
	AccessToken string    `json:"access_token"`
	UserID      uuid.UUID `json:"user_id"`
}

func (p *HTTPProvider) VerifyCredentials(ctx context.Context, identifier, credential string) (model.SessionCredential, error) {
	var resp signInResponse
	status, err := p.do(ctx, http.MethodPost, "/auth/v1/signin", "",
		signInRequest{Identifier: identifier, Credential: credential}, &resp)
	if err != nil {
		return model.SessionCredential{}, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.SessionCredential{}, model.NewAuthError("invalid email or password")
	default:
		return model.SessionCredential{}, model.NewUnknownError("sign-in failed",
			fmt.Errorf("unexpected status %d", status))
	}

	if resp.AccessToken == "" || resp.UserID == uuid.Nil {
		return model.SessionCredential{}, model.NewUnknownError("sign-in failed",
			fmt.Errorf("incomplete sign-in response"))
	}

	return model.SessionCredential{
		UserID:      resp.UserID,
		AccessToken: resp.AccessToken,
		IssuedAt:    time.Now(),
	}, nil
}

func (p *HTTPProvider) SignOut(ctx context.Context, accessToken string) error {
	status, err := p.do(ctx, http.MethodPost, "/auth/v1/signout", accessToken, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return model.NewUnknownError("sign-out failed",
			fmt.Errorf("unexpected status %d", status))
	}
	return nil
}

type enrollResponse struct {
	FactorID  string `json:"factor_id"`
	Secret    string `json:"secret"`
	QRPayload string `json:"qr_payload"`
}

func (p *HTTPProvider) EnrollFactor(ctx context.Context, accessToken string) (model.Enrollment, error) {
	var resp enrollResponse
	status, err := p.do(ctx, http.MethodPost, "/auth/v1/factors", accessToken, nil, &resp)
	if err != nil {
		return model.Enrollment{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return model.Enrollment{}, model.NewUnknownError("factor enrollment failed",
			fmt.Errorf("unexpected status %d", status))
	}
	if resp.FactorID == "" || resp.Secret == "" {
		return model.Enrollment{}, model.NewUnknownError("factor enrollment failed",
			fmt.Errorf("incomplete enrollment response"))
	}

	return model.Enrollment{
		FactorID:     resp.FactorID,
		SharedSecret: resp.Secret,
		QRPayload:    resp.QRPayload,
	}, nil
}

type challengeResponse struct {
	ChallengeID string `json:"challenge_id"`
}

func (p *HTTPProvider) CreateChallenge(ctx context.Context, accessToken, factorID string) (string, error) {
	var resp challengeResponse
	status, err := p.do(ctx, http.MethodPost, "/auth/v1/factors/"+factorID+"/challenge", accessToken, nil, &resp)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", model.NewUnknownError("challenge creation failed",
			fmt.Errorf("unexpected status %d", status))
	}
	if resp.ChallengeID == "" {
		return "", model.NewUnknownError("challenge creation failed",
			fmt.Errorf("empty challenge id"))
	}
	return resp.ChallengeID, nil
}

type verifyRequest struct {
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

func (p *HTTPProvider) VerifyChallenge(ctx context.Context, accessToken, factorID, challengeID, code string) (bool, error) {
	var resp verifyResponse
	status, err := p.do(ctx, http.MethodPost, "/auth/v1/factors/"+factorID+"/verify", accessToken,
		verifyRequest{ChallengeID: challengeID, Code: code}, &resp)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, model.NewUnknownError("challenge verification failed",
			fmt.Errorf("unexpected status %d", status))
	}
	return resp.Verified, nil
}

type factorResponse struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

func (p *HTTPProvider) ListFactors(ctx context.Context, accessToken string) ([]model.MFAFactor, error) {
	var resp []factorResponse
	status, err := p.do(ctx, http.MethodGet, "/auth/v1/factors", accessToken, nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, model.NewUnknownError("factor listing failed",
			fmt.Errorf("unexpected status %d", status))
	}

	factors := make([]model.MFAFactor, 0, len(resp))
	for _, f := range resp {
		factors = append(factors, model.MFAFactor{
			ID:         f.ID,
			Status:     model.FactorStatus(f.Status),
			EnrolledAt: f.EnrolledAt,
		})
	}
	return factors, nil
}

// do performs one JSON request and decodes the body into out when out
// is non-nil and the response carries a body. It returns the HTTP
// status so callers can map it; transport failures come back as
// NETWORK errors.
func (p *HTTPProvider) do(ctx context.Context, method, path, accessToken string, in, out any) (int, error) {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-Api-Key", p.apiKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("provider request failed",
			"method", method,
			"path", path,
			"error", err.Error())
		return 0, model.NewNetworkError("identity provider unavailable", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, model.NewUnknownError("unexpected provider response",
				fmt.Errorf("failed to decode response: %w", err))
		}
	}

	return resp.StatusCode, nil
}
