package model

import "context"

// Namespace groups related keys in the secret store. Deleting a
// namespace removes every key under it atomically from the caller's
// perspective.
type Namespace string

const (
	NamespaceIdentity    Namespace = "identity"
	NamespacePreferences Namespace = "prefs"
)

// SecretKey addresses one value in the secret store. Keys are prefixed
// with their namespace.
type SecretKey string

const (
	KeyUserID               SecretKey = "identity.user_id"
	KeyUserSession          SecretKey = "identity.user_session"
	KeyMFAFactorID          SecretKey = "identity.mfa_factor_id"
	KeyNotificationsEnabled SecretKey = "prefs.notifications_enabled"
)

// Namespace returns the namespace the key belongs to.
func (k SecretKey) Namespace() Namespace {
	for i := 0; i < len(k); i++ {
		if k[i] == '.' {
			return Namespace(k[:i])
		}
	}
	return Namespace(k)
}

// SecretStore is encrypted, namespaced key-value persistence for
// session and MFA state. Implementations must survive process restarts
// and never expose plaintext at rest.
type SecretStore interface {
	Save(ctx context.Context, key SecretKey, value string) error
	Get(ctx context.Context, key SecretKey) (string, error)
	GetJSON(ctx context.Context, key SecretKey, v any) error
	SaveJSON(ctx context.Context, key SecretKey, v any) error
	Delete(ctx context.Context, key SecretKey) error
	DeleteNamespace(ctx context.Context, ns Namespace) error
}
