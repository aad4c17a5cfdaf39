package model

import "context"

// IdentityProvider is the remote identity service the gate sits in
// front of. Credential verification, TOTP secret generation and session
// token issuance all happen on the provider side; the gate only depends
// on the structured results below.
type IdentityProvider interface {
	// VerifyCredentials checks an identifier/credential pair and returns
	// a provisional session on success. A wrong pair yields an AUTH
	// error, provider unavailability a NETWORK error.
	VerifyCredentials(ctx context.Context, identifier, credential string) (SessionCredential, error)

	// SignOut invalidates the remote session behind the token.
	SignOut(ctx context.Context, accessToken string) error

	// EnrollFactor requests a new TOTP factor for the session's user.
	// The factor stays unverified until a challenge is verified.
	EnrollFactor(ctx context.Context, accessToken string) (Enrollment, error)

	// CreateChallenge issues a single-use challenge for the factor.
	CreateChallenge(ctx context.Context, accessToken, factorID string) (string, error)

	// VerifyChallenge submits a 6-digit code against a challenge. A wrong
	// code reports verified=false without error.
	VerifyChallenge(ctx context.Context, accessToken, factorID, challengeID, code string) (bool, error)

	// ListFactors returns the user's registered factors.
	ListFactors(ctx context.Context, accessToken string) ([]MFAFactor, error)
}
