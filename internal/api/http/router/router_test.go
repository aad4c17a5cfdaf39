package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectr-app/authgate/internal/keystore"
	"github.com/collectr-app/authgate/internal/model"
	"github.com/collectr-app/authgate/internal/provider"
	"github.com/collectr-app/authgate/internal/repository/sqlite"
	"github.com/collectr-app/authgate/internal/service"
	"github.com/collectr-app/authgate/internal/testutil"
	"github.com/collectr-app/authgate/internal/token"
)

// newTestGate assembles the full stack behind the router: sqlite attempt
// store, encrypted keystore and the in-process identity provider.
func newTestGate(t *testing.T) (http.Handler, *keystore.Store) {
	t.Helper()
	ctx := context.Background()
	log := testutil.MakeNoopLogger()
	dir := t.TempDir()

	db, err := sqlite.NewConnection(ctx, filepath.Join(dir, "authgate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	secrets, err := keystore.New(filepath.Join(dir, "authgate.keystore"), "test-passphrase", log)
	require.NoError(t, err)

	idp := provider.NewLocal(token.NewJWT("test-secret"), "Collectr", log)
	idp.Register("user@x.com", "password")

	limiter := service.NewRateLimiter(sqlite.NewAttemptRepository(db), 5, time.Hour, log)
	mfa := service.NewMFAOrchestrator(idp, secrets, log)
	controller := service.NewAuthSessionController(limiter, mfa, idp, secrets, log)
	prefs := service.NewPreferencesService(secrets)

	return New(controller, mfa, limiter, prefs, log).Register(), secrets
}

func doJSON(t *testing.T, h http.Handler, method, path, bearer, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec
}

// signIn authenticates over HTTP and returns the persisted session token.
func signIn(t *testing.T, h http.Handler, secrets *keystore.Store) string {
	t.Helper()
	var resp struct {
		State string `json:"state"`
	}
	rec := doJSON(t, h, http.MethodPost, "/api/auth/signin", "",
		`{"identifier":"user@x.com","credential":"password"}`, &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "authenticated", resp.State)

	var cred model.SessionCredential
	require.NoError(t, secrets.GetJSON(context.Background(), model.KeyUserSession, &cred))
	return cred.AccessToken
}

func TestRouter_SignInLifecycle(t *testing.T) {
	h, secrets := newTestGate(t)

	// Wrong credential: 200 with failed state, one attempt burned.
	var failed struct {
		State   string `json:"state"`
		Message string `json:"message"`
	}
	rec := doJSON(t, h, http.MethodPost, "/api/auth/signin", "",
		`{"identifier":"user@x.com","credential":"wrong"}`, &failed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "failed", failed.State)
	assert.Equal(t, "invalid email or password", failed.Message)

	var limit struct {
		Blocked           bool `json:"blocked"`
		AttemptsRemaining int  `json:"attempts_remaining"`
	}
	rec = doJSON(t, h, http.MethodGet, "/api/auth/ratelimit?identifier=user@x.com", "", "", &limit)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, limit.Blocked)
	assert.Equal(t, 4, limit.AttemptsRemaining)

	// Right credential finalizes and persists the session.
	sessionToken := signIn(t, h, secrets)

	// Sign-out requires the session token.
	rec = doJSON(t, h, http.MethodPost, "/api/auth/signout", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/auth/signout", sessionToken, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// The identity namespace is gone after sign-out.
	_, err := secrets.Get(context.Background(), model.KeyUserSession)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRouter_MFALifecycle(t *testing.T) {
	h, secrets := newTestGate(t)
	sessionToken := signIn(t, h, secrets)

	var enroll struct {
		FactorID     string `json:"factor_id"`
		SharedSecret string `json:"shared_secret"`
	}
	rec := doJSON(t, h, http.MethodPost, "/api/auth/mfa/enroll", sessionToken, "", &enroll)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, enroll.FactorID)
	require.NotEmpty(t, enroll.SharedSecret)

	var challenge struct {
		ChallengeID string `json:"challenge_id"`
	}
	rec = doJSON(t, h, http.MethodPost, "/api/auth/mfa/challenge", sessionToken,
		fmt.Sprintf(`{"factor_id":%q}`, enroll.FactorID), &challenge)
	require.Equal(t, http.StatusCreated, rec.Code)

	code, err := totp.GenerateCode(enroll.SharedSecret, time.Now())
	require.NoError(t, err)

	var verify struct {
		Verified bool `json:"verified"`
	}
	rec = doJSON(t, h, http.MethodPost, "/api/auth/mfa/verify", sessionToken,
		fmt.Sprintf(`{"factor_id":%q,"challenge_id":%q,"code":%q}`, enroll.FactorID, challenge.ChallengeID, code), &verify)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, verify.Verified)

	var status struct {
		Enabled bool `json:"enabled"`
	}
	rec = doJSON(t, h, http.MethodGet, "/api/auth/mfa/status", "", "", &status)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, status.Enabled)
}

func TestRouter_Preferences(t *testing.T) {
	h, secrets := newTestGate(t)

	rec := doJSON(t, h, http.MethodGet, "/api/prefs", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	sessionToken := signIn(t, h, secrets)

	var prefs struct {
		NotificationsEnabled bool `json:"notifications_enabled"`
	}
	rec = doJSON(t, h, http.MethodGet, "/api/prefs", sessionToken, "", &prefs)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, prefs.NotificationsEnabled)

	rec = doJSON(t, h, http.MethodPut, "/api/prefs", sessionToken,
		`{"notifications_enabled":true}`, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/prefs", sessionToken, "", &prefs)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, prefs.NotificationsEnabled)
}

func TestRouter_CompleteMFAWithoutPending(t *testing.T) {
	h, _ := newTestGate(t)

	rec := doJSON(t, h, http.MethodPost, "/api/auth/mfa/complete", "", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	h, _ := newTestGate(t)

	rec := doJSON(t, h, http.MethodGet, "/api/auth/nope", "", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
