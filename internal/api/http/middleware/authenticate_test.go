package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectr-app/authgate/internal/model"
	"github.com/collectr-app/authgate/internal/testutil"
)

type stubValidator struct {
	userID uuid.UUID
	err    error
}

func (s *stubValidator) ValidateAccessToken(context.Context, string) (uuid.UUID, error) {
	return s.userID, s.err
}

func TestAuthenticate_ValidToken(t *testing.T) {
	userID := uuid.New()
	m := NewAuthenticate(&stubValidator{userID: userID}, testutil.MakeNoopLogger())

	var gotUserID uuid.UUID
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, gotOK = GetUserID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer session-token")
	rec := httptest.NewRecorder()

	m.Handle(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, gotOK)
	assert.Equal(t, userID, gotUserID)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	m := NewAuthenticate(&stubValidator{}, testutil.MakeNoopLogger())

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	m.Handle(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	m := NewAuthenticate(&stubValidator{err: model.NewAuthError("invalid session token")}, testutil.MakeNoopLogger())

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	m.Handle(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestGetUserID_Absent(t *testing.T) {
	_, ok := GetUserID(context.Background())
	assert.False(t, ok)
}
