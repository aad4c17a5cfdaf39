package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/collectr-app/authgate/internal/logger"
)

// SessionValidator resolves user IDs from bearer tokens.
type SessionValidator interface {
	ValidateAccessToken(ctx context.Context, accessToken string) (uuid.UUID, error)
}

type contextKey string

const userIDKey contextKey = "user_id"

// Authenticate validates bearer tokens against the stored session and
// injects the user ID into the request context.
type Authenticate struct {
	sessions SessionValidator
	logger   *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(sessions SessionValidator, logger *logger.Logger) *Authenticate {
	return &Authenticate{sessions: sessions, logger: logger}
}

// Handle parses the Authorization header, validates the token and
// passes the request on with the user ID in its context.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if tokenString == "" {
			http.Error(w, "missing authorization token", http.StatusUnauthorized)
			return
		}

		userID, err := m.sessions.ValidateAccessToken(r.Context(), tokenString)
		if err != nil {
			m.logger.Debug("authenticate middleware: token rejected",
				"error", err.Error())
			http.Error(w, "invalid authorization token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// GetUserID retrieves the authenticated user ID from the request
// context.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}
