package model

// AISettings are the provider credentials a user saved at runtime.
// Empty fields fall back to the service configuration.
type AISettings struct {
	DeepSeekKey     string `json:"deepseekKey"`
	DeepSeekBaseURL string `json:"deepseekBaseUrl"`
	MiniMaxKey      string `json:"minimaxKey"`
	MiniMaxBaseURL  string `json:"minimaxBaseUrl,omitempty"`
}
