package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/collectr-app/authgate/internal/model"
)

// PreferencesService keeps the typed local preferences record in the
// secret store, replacing loose string flags.
type PreferencesService struct {
	secrets model.SecretStore
}

func NewPreferencesService(secrets model.SecretStore) *PreferencesService {
	return &PreferencesService{secrets: secrets}
}

// Load returns the stored preferences, or the zero record when none
// have been saved yet.
func (s *PreferencesService) Load(ctx context.Context) (model.Preferences, error) {
	var prefs model.Preferences
	err := s.secrets.GetJSON(ctx, model.KeyNotificationsEnabled, &prefs)
	if errors.Is(err, model.ErrNotFound) {
		return model.Preferences{}, nil
	}
	if err != nil {
		return model.Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	return prefs, nil
}

// Save persists the preferences record.
func (s *PreferencesService) Save(ctx context.Context, prefs model.Preferences) error {
	if err := s.secrets.SaveJSON(ctx, model.KeyNotificationsEnabled, prefs); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
