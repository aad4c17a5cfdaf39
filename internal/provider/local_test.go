package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/collectr-app/authgate/internal/mocks"
	"github.com/collectr-app/authgate/internal/model"
	"github.com/collectr-app/authgate/internal/testutil"
	"github.com/collectr-app/authgate/internal/token"
)

func newLocalProvider(t *testing.T) *Local {
	t.Helper()
	return NewLocal(token.NewJWT("test-secret"), "Collectr", testutil.MakeNoopLogger())
}

func totpCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestLocal_VerifyCredentials(t *testing.T) {
	ctx := context.Background()
	p := newLocalProvider(t)
	userID := p.Register("dev@collectr.app", "devpassword")

	cred, err := p.VerifyCredentials(ctx, "dev@collectr.app", "devpassword")
	require.NoError(t, err)
	assert.Equal(t, userID, cred.UserID)
	assert.NotEmpty(t, cred.AccessToken)
}

func TestLocal_VerifyCredentials_Wrong(t *testing.T) {
	ctx := context.Background()
	p := newLocalProvider(t)
	p.Register("dev@collectr.app", "devpassword")

	tests := []struct {
		name       string
		identifier string
		credential string
	}{
		{name: "wrong password", identifier: "dev@collectr.app", credential: "nope"},
		{name: "unknown user", identifier: "ghost@collectr.app", credential: "devpassword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.VerifyCredentials(ctx, tt.identifier, tt.credential)
			require.Error(t, err)
			assert.Equal(t, model.KindAuth, model.KindOf(err))
			assert.Equal(t, "invalid email or password", model.MessageOf(err))
		})
	}
}

func TestLocal_EnrollChallengeVerify(t *testing.T) {
	ctx := context.Background()
	p := newLocalProvider(t)
	p.Register("dev@collectr.app", "devpassword")

	cred, err := p.VerifyCredentials(ctx, "dev@collectr.app", "devpassword")
	require.NoError(t, err)

	enrollment, err := p.EnrollFactor(ctx, cred.AccessToken)
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.FactorID)
	assert.NotEmpty(t, enrollment.SharedSecret)
	assert.Contains(t, enrollment.QRPayload, "otpauth://totp/")

	// Unverified until a challenge clears.
	factors, err := p.ListFactors(ctx, cred.AccessToken)
	require.NoError(t, err)
	require.Len(t, factors, 1)
	assert.Equal(t, model.FactorUnverified, factors[0].Status)

	challengeID, err := p.CreateChallenge(ctx, cred.AccessToken, enrollment.FactorID)
	require.NoError(t, err)

	verified, err := p.VerifyChallenge(ctx, cred.AccessToken, enrollment.FactorID, challengeID, totpCode(t, enrollment.SharedSecret))
	require.NoError(t, err)
	assert.True(t, verified)

	factors, err = p.ListFactors(ctx, cred.AccessToken)
	require.NoError(t, err)
	require.Len(t, factors, 1)
	assert.Equal(t, model.FactorVerified, factors[0].Status)
}

func TestLocal_VerifyChallenge_SingleUse(t *testing.T) {
	ctx := context.Background()
	p := newLocalProvider(t)
	p.Register("dev@collectr.app", "devpassword")

	cred, err := p.VerifyCredentials(ctx, "dev@collectr.app", "devpassword")
	require.NoError(t, err)
	enrollment, err := p.EnrollFactor(ctx, cred.AccessToken)
	require.NoError(t, err)
	challengeID, err := p.CreateChallenge(ctx, cred.AccessToken, enrollment.FactorID)
	require.NoError(t, err)

	// Wrong code consumes the challenge.
	verified, err := p.VerifyChallenge(ctx, cred.AccessToken, enrollment.FactorID, challengeID, "000000")
	require.NoError(t, err)
	assert.False(t, verified)

	// A retry with the right code is rejected until a fresh challenge.
	verified, err = p.VerifyChallenge(ctx, cred.AccessToken, enrollment.FactorID, challengeID, totpCode(t, enrollment.SharedSecret))
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestLocal_CreateChallenge_DropsPrevious(t *testing.T) {
	ctx := context.Background()
	p := newLocalProvider(t)
	p.Register("dev@collectr.app", "devpassword")

	cred, err := p.VerifyCredentials(ctx, "dev@collectr.app", "devpassword")
	require.NoError(t, err)
	enrollment, err := p.EnrollFactor(ctx, cred.AccessToken)
	require.NoError(t, err)

	first, err := p.CreateChallenge(ctx, cred.AccessToken, enrollment.FactorID)
	require.NoError(t, err)
	second, err := p.CreateChallenge(ctx, cred.AccessToken, enrollment.FactorID)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	verified, err := p.VerifyChallenge(ctx, cred.AccessToken, enrollment.FactorID, first, totpCode(t, enrollment.SharedSecret))
	require.NoError(t, err)
	assert.False(t, verified)

	verified, err = p.VerifyChallenge(ctx, cred.AccessToken, enrollment.FactorID, second, totpCode(t, enrollment.SharedSecret))
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestLocal_InvalidToken(t *testing.T) {
	ctx := context.Background()
	p := newLocalProvider(t)

	_, err := p.EnrollFactor(ctx, "garbage")
	assert.Equal(t, model.KindAuth, model.KindOf(err))

	_, err = p.CreateChallenge(ctx, "garbage", "factor-1")
	assert.Equal(t, model.KindAuth, model.KindOf(err))

	_, err = p.ListFactors(ctx, "garbage")
	assert.Equal(t, model.KindAuth, model.KindOf(err))

	err = p.SignOut(ctx, "garbage")
	assert.Equal(t, model.KindAuth, model.KindOf(err))
}

func TestLocal_VerifyCredentials_TokenIssueFailure(t *testing.T) {
	ctx := context.Background()
	tokens := new(mocks.TokenManager)
	tokens.On("GenerateSessionToken", mock.Anything).
		Return("", errors.New("signing key unavailable"))

	p := NewLocal(tokens, "Collectr", testutil.MakeNoopLogger())
	p.Register("dev@collectr.app", "devpassword")

	_, err := p.VerifyCredentials(ctx, "dev@collectr.app", "devpassword")
	require.Error(t, err)
	assert.Equal(t, model.KindUnknown, model.KindOf(err))
}

func TestLocal_UnknownFactor(t *testing.T) {
	ctx := context.Background()
	p := newLocalProvider(t)
	p.Register("dev@collectr.app", "devpassword")

	cred, err := p.VerifyCredentials(ctx, "dev@collectr.app", "devpassword")
	require.NoError(t, err)

	_, err = p.CreateChallenge(ctx, cred.AccessToken, "nope")
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	_, err = p.VerifyChallenge(ctx, cred.AccessToken, "nope", "challenge", "000000")
	assert.Equal(t, model.KindValidation, model.KindOf(err))
}
