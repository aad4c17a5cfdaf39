package model

import "github.com/google/uuid"

// TokenManager generates and validates session tokens for the local
// development provider.
type TokenManager interface {
	GenerateSessionToken(userID uuid.UUID) (string, error)
	ParseSessionToken(token string) (uuid.UUID, error)
}
