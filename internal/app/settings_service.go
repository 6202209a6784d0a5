package app

import (
	"context"
	"strings"

	"smartaudit/internal/ai"
	"smartaudit/internal/model"
	"smartaudit/internal/repository"
)

// SettingsDefaults are the configured fallbacks for anything not saved at runtime.
type SettingsDefaults struct {
	Provider         ai.Provider
	Language         ai.Language
	DeepSeek         ai.Credentials
	MiniMax          ai.Credentials
	GeminiConfigured bool
}

type SettingsService struct {
	repo     *repository.SettingsRepository
	defaults SettingsDefaults
}

// SettingsView is the saved settings with secrets masked.
type SettingsView struct {
	DeepSeekKeyMasked string           `json:"deepseekKeyMasked"`
	DeepSeekBaseURL   string           `json:"deepseekBaseUrl"`
	MiniMaxKeyMasked  string           `json:"minimaxKeyMasked"`
	MiniMaxBaseURL    string           `json:"minimaxBaseUrl"`
	DefaultProvider   ai.Provider      `json:"defaultProvider"`
	DefaultLanguage   ai.Language      `json:"defaultLanguage"`
	Status            []ProviderStatus `json:"status"`
}

// ProviderStatus tells whether calls to a provider reach it or silently degrade to Gemini.
type ProviderStatus struct {
	Provider   ai.Provider `json:"provider"`
	Configured bool        `json:"configured"`
}

// SaveSettingsInput carries a partial update; nil fields keep their saved value.
type SaveSettingsInput struct {
	DeepSeekKey     *string
	DeepSeekBaseURL *string
	MiniMaxKey      *string
	MiniMaxBaseURL  *string
}

func NewSettingsService(repo *repository.SettingsRepository, defaults SettingsDefaults) *SettingsService {
	if defaults.Provider == "" {
		defaults.Provider = ai.ProviderGemini
	}
	if defaults.Language == "" {
		defaults.Language = ai.LanguageZH
	}
	return &SettingsService{repo: repo, defaults: defaults}
}

func (s *SettingsService) Get(ctx context.Context) (*SettingsView, error) {
	saved, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	deepseek, minimax := s.merge(saved)
	return &SettingsView{
		DeepSeekKeyMasked: maskSecret(saved.DeepSeekKey),
		DeepSeekBaseURL:   saved.DeepSeekBaseURL,
		MiniMaxKeyMasked:  maskSecret(saved.MiniMaxKey),
		MiniMaxBaseURL:    saved.MiniMaxBaseURL,
		DefaultProvider:   s.defaults.Provider,
		DefaultLanguage:   s.defaults.Language,
		Status: []ProviderStatus{
			{Provider: ai.ProviderGemini, Configured: s.defaults.GeminiConfigured},
			{Provider: ai.ProviderDeepSeek, Configured: deepseek.Configured()},
			{Provider: ai.ProviderMiniMax, Configured: minimax.Configured()},
		},
	}, nil
}

func (s *SettingsService) Save(ctx context.Context, input SaveSettingsInput) (*SettingsView, error) {
	saved, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	assign := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	assign(&saved.DeepSeekKey, input.DeepSeekKey)
	assign(&saved.DeepSeekBaseURL, input.DeepSeekBaseURL)
	assign(&saved.MiniMaxKey, input.MiniMaxKey)
	assign(&saved.MiniMaxBaseURL, input.MiniMaxBaseURL)
	if err := s.repo.Save(ctx, saved); err != nil {
		return nil, err
	}
	return s.Get(ctx)
}

// CallConfig assembles the per-call provider selection. Saved credentials win
// over configured ones; empty provider or language select the defaults.
func (s *SettingsService) CallConfig(ctx context.Context, provider, language string) (ai.CallConfig, error) {
	p := s.defaults.Provider
	if strings.TrimSpace(provider) != "" {
		parsed, err := ai.ParseProvider(provider)
		if err != nil {
			return ai.CallConfig{}, ErrInvalidInput
		}
		p = parsed
	}
	lang := s.defaults.Language
	if strings.TrimSpace(language) != "" {
		parsed, err := ai.ParseLanguage(language)
		if err != nil {
			return ai.CallConfig{}, ErrInvalidInput
		}
		lang = parsed
	}

	saved, err := s.repo.Get(ctx)
	if err != nil {
		return ai.CallConfig{}, err
	}
	deepseek, minimax := s.merge(saved)
	return ai.CallConfig{Provider: p, Language: lang, DeepSeek: deepseek, MiniMax: minimax}, nil
}

func (s *SettingsService) merge(saved model.AISettings) (ai.Credentials, ai.Credentials) {
	deepseek := s.defaults.DeepSeek
	if saved.DeepSeekKey != "" {
		deepseek.APIKey = saved.DeepSeekKey
	}
	if saved.DeepSeekBaseURL != "" {
		deepseek.BaseURL = saved.DeepSeekBaseURL
	}
	minimax := s.defaults.MiniMax
	if saved.MiniMaxKey != "" {
		minimax.APIKey = saved.MiniMaxKey
	}
	if saved.MiniMaxBaseURL != "" {
		minimax.BaseURL = saved.MiniMaxBaseURL
	}
	return deepseek, minimax
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
