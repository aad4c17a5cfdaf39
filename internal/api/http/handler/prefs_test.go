package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectr-app/authgate/internal/model"
	"github.com/collectr-app/authgate/internal/testutil"
)

type stubPreferences struct {
	prefs   model.Preferences
	loadErr error
	saved   *model.Preferences
}

func (s *stubPreferences) Load(context.Context) (model.Preferences, error) {
	return s.prefs, s.loadErr
}

func (s *stubPreferences) Save(_ context.Context, prefs model.Preferences) error {
	s.saved = &prefs
	return nil
}

func TestPreferences_Get(t *testing.T) {
	h := NewPreferences(&stubPreferences{
		prefs: model.Preferences{NotificationsEnabled: true},
	}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/prefs", nil)
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp preferencesPayload
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.NotificationsEnabled)
}

func TestPreferences_Get_LoadError(t *testing.T) {
	h := NewPreferences(&stubPreferences{
		loadErr: errors.New("keystore unavailable"),
	}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/prefs", nil)
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPreferences_Put(t *testing.T) {
	prefs := &stubPreferences{}
	h := NewPreferences(prefs, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/prefs",
		strings.NewReader(`{"notifications_enabled":true}`))
	rec := httptest.NewRecorder()

	h.Put(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, prefs.saved)
	assert.True(t, prefs.saved.NotificationsEnabled)
}

func TestPreferences_Put_MalformedBody(t *testing.T) {
	h := NewPreferences(&stubPreferences{}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/prefs", strings.NewReader("{"))
	rec := httptest.NewRecorder()

	h.Put(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
