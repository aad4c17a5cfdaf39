package model

import "time"

// FactorStatus describes whether a second factor is usable for sign-in.
type FactorStatus string

const (
	FactorUnverified FactorStatus = "unverified"
	FactorVerified   FactorStatus = "verified"
)

// MFAFactor is a registered second authentication method. The factor
// gates sign-in only once its status is Verified.
type MFAFactor struct {
	ID         string
	Status     FactorStatus
	EnrolledAt time.Time
}

// Enrollment is the provider payload returned when a new factor is
// requested. SharedSecret and QRPayload are shown once to the user for
// authenticator setup and never persisted locally.
type Enrollment struct {
	FactorID     string
	SharedSecret string
	QRPayload    string
}

// MFAChallenge is a single-use server-issued token that must accompany
// a verification code submission. At most one challenge per factor is
// live; issuing a new one invalidates any prior unconsumed challenge.
type MFAChallenge struct {
	ID       string
	FactorID string
	IssuedAt time.Time
}
