package ai

import (
	"fmt"
	"strings"
)

// Provider names one of the supported AI backends.
type Provider string

const (
	// ProviderGemini is the multimodal default and the fallback target of every other provider.
	ProviderGemini   Provider = "Gemini"
	ProviderDeepSeek Provider = "DeepSeek"
	ProviderMiniMax  Provider = "MiniMax"
)

var Providers = []Provider{ProviderGemini, ProviderDeepSeek, ProviderMiniMax}

// ParseProvider accepts provider names case-insensitively. An empty name selects the default.
func ParseProvider(raw string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "gemini":
		return ProviderGemini, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "minimax":
		return ProviderMiniMax, nil
	}
	return "", fmt.Errorf("unknown provider %q", raw)
}

// Multimodal reports whether the provider accepts inline binary parts.
func (p Provider) Multimodal() bool {
	return p == ProviderGemini
}

// DefaultTemperature is 0.7 for the reasoning model and 0.1 for plain chat models.
func (p Provider) DefaultTemperature() float64 {
	if p.Multimodal() {
		return 0.7
	}
	return 0.1
}

type Language string

const (
	LanguageZH Language = "zh"
	LanguageEN Language = "en"
)

func ParseLanguage(raw string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "zh", "zh-cn":
		return LanguageZH, nil
	case "en", "en-us":
		return LanguageEN, nil
	}
	return "", fmt.Errorf("unknown language %q", raw)
}

func (l Language) IsZH() bool {
	return l != LanguageEN
}

// Directive is appended to every system instruction.
func (l Language) Directive() string {
	if l.IsZH() {
		return "IMPORTANT: Respond strictly in Chinese (Simplified). 请严格使用简体中文回答。"
	}
	return "IMPORTANT: Respond strictly in English."
}

// WithLanguage appends the response-language directive to a system instruction.
func WithLanguage(instruction string, lang Language) string {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return lang.Directive()
	}
	return instruction + "\n\n" + lang.Directive()
}
