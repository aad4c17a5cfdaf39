package provider

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"github.com/collectr-app/authgate/internal/logger"
	"github.com/collectr-app/authgate/internal/model"
)

// Ensure Local implements the model.IdentityProvider interface.
var _ model.IdentityProvider = (*Local)(nil)

// Local is an in-process identity provider for development and
// end-to-end tests. It keeps users and TOTP factors in memory, issues
// real TOTP secrets and validates real codes, and mints session tokens
// with the JWT token manager.
type Local struct {
	mu         sync.Mutex
	tokens     model.TokenManager
	issuer     string
	users      map[string]localUser
	factors    map[string]*localFactor
	challenges map[string]string // challenge id -> factor id
	logger     *logger.Logger
}

type localUser struct {
	id         uuid.UUID
	identifier string
	credential string
}

type localFactor struct {
	userID     uuid.UUID
	secret     string
	status     model.FactorStatus
	enrolledAt time.Time
}

// NewLocal creates an empty local provider.
func NewLocal(tokens model.TokenManager, issuer string, logger *logger.Logger) *Local {
	return &Local{
		tokens:     tokens,
		issuer:     issuer,
		users:      make(map[string]localUser),
		factors:    make(map[string]*localFactor),
		challenges: make(map[string]string),
		logger:     logger,
	}
}

// Register seeds a user. Returns the assigned user ID.
func (p *Local) Register(identifier, credential string) uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()

	user := localUser{id: uuid.New(), identifier: identifier, credential: credential}
	p.users[identifier] = user
	return user.id
}

func (p *Local) VerifyCredentials(ctx context.Context, identifier, credential string) (model.SessionCredential, error) {
	p.mu.Lock()
	user, ok := p.users[identifier]
	p.mu.Unlock()

	if !ok || user.credential != credential {
		return model.SessionCredential{}, model.NewAuthError("invalid email or password")
	}

	token, err := p.tokens.GenerateSessionToken(user.id)
	if err != nil {
		return model.SessionCredential{}, model.NewUnknownError("failed to issue session token", err)
	}

	return model.SessionCredential{
		UserID:      user.id,
		AccessToken: token,
		IssuedAt:    time.Now(),
	}, nil
}

func (p *Local) SignOut(ctx context.Context, accessToken string) error {
	// Tokens are stateless; nothing to revoke in the dev provider.
	_, err := p.tokens.ParseSessionToken(accessToken)
	if err != nil {
		return model.NewAuthError("invalid session token")
	}
	return nil
}

func (p *Local) EnrollFactor(ctx context.Context, accessToken string) (model.Enrollment, error) {
	userID, err := p.userID(accessToken)
	if err != nil {
		return model.Enrollment{}, err
	}

	account := userID.String()
	p.mu.Lock()
	for _, u := range p.users {
		if u.id == userID {
			account = u.identifier
			break
		}
	}
	p.mu.Unlock()

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.issuer,
		AccountName: account,
	})
	if err != nil {
		return model.Enrollment{}, model.NewUnknownError("failed to generate TOTP secret", err)
	}

	factorID := uuid.NewString()
	p.mu.Lock()
	p.factors[factorID] = &localFactor{
		userID:     userID,
		secret:     key.Secret(),
		status:     model.FactorUnverified,
		enrolledAt: time.Now(),
	}
	p.mu.Unlock()

	return model.Enrollment{
		FactorID:     factorID,
		SharedSecret: key.Secret(),
		QRPayload:    key.URL(),
	}, nil
}

func (p *Local) CreateChallenge(ctx context.Context, accessToken, factorID string) (string, error) {
	userID, err := p.userID(accessToken)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	factor, ok := p.factors[factorID]
	if !ok || factor.userID != userID {
		return "", model.NewValidationError("unknown factor")
	}

	// One live challenge per factor: issuing a new one drops the old.
	for id, fid := range p.challenges {
		if fid == factorID {
			delete(p.challenges, id)
		}
	}

	challengeID := uuid.NewString()
	p.challenges[challengeID] = factorID
	return challengeID, nil
}

func (p *Local) VerifyChallenge(ctx context.Context, accessToken, factorID, challengeID, code string) (bool, error) {
	userID, err := p.userID(accessToken)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	factor, ok := p.factors[factorID]
	if !ok || factor.userID != userID {
		return false, model.NewValidationError("unknown factor")
	}

	fid, live := p.challenges[challengeID]
	if !live || fid != factorID {
		return false, nil
	}
	// Single use: the challenge is consumed whether or not the code is right.
	delete(p.challenges, challengeID)

	if !totp.Validate(code, factor.secret) {
		return false, nil
	}

	factor.status = model.FactorVerified
	return true, nil
}

func (p *Local) ListFactors(ctx context.Context, accessToken string) ([]model.MFAFactor, error) {
	userID, err := p.userID(accessToken)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var factors []model.MFAFactor
	for id, factor := range p.factors {
		if factor.userID != userID {
			continue
		}
		factors = append(factors, model.MFAFactor{
			ID:         id,
			Status:     factor.status,
			EnrolledAt: factor.enrolledAt,
		})
	}
	return factors, nil
}

// Secret exposes a factor's shared secret so tests and the dev CLI can
// compute valid codes.
func (p *Local) Secret(factorID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	factor, ok := p.factors[factorID]
	if !ok {
		return "", false
	}
	return factor.secret, true
}

func (p *Local) userID(accessToken string) (uuid.UUID, error) {
	userID, err := p.tokens.ParseSessionToken(accessToken)
	if err != nil {
		return uuid.Nil, model.NewAuthError("invalid session token")
	}
	return userID, nil
}
