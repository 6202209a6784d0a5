package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"smartaudit/internal/kv"
	"smartaudit/internal/model"
)

type SettingsRepository struct {
	store kv.Store
}

func NewSettingsRepository(store kv.Store) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// Get returns the saved AI settings, or zero settings when nothing was saved.
func (r *SettingsRepository) Get(ctx context.Context) (model.AISettings, error) {
	var settings model.AISettings
	raw, err := r.store.Get(ctx, KeyAISettings)
	if errors.Is(err, kv.ErrNotFound) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("get ai settings failed: %w", err)
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return settings, fmt.Errorf("decode ai settings failed: %w", err)
	}
	return settings, nil
}

func (r *SettingsRepository) Save(ctx context.Context, settings model.AISettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode ai settings failed: %w", err)
	}
	if err := r.store.Set(ctx, KeyAISettings, payload); err != nil {
		return fmt.Errorf("save ai settings failed: %w", err)
	}
	return nil
}
