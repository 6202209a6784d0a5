package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultMiniMaxModel = "abab6.5s-chat"

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatConfig addresses one OpenAI-style chat provider.
type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// MiniMaxAdapter speaks the chatcompletion_v2 API. That API can answer HTTP 200
// with a failure inside base_resp, so both are checked.
type MiniMaxAdapter struct {
	httpClient *http.Client
	cfg        ChatConfig
}

func NewMiniMaxAdapter(cfg ChatConfig, httpClient *http.Client) *MiniMaxAdapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	if cfg.Model == "" {
		cfg.Model = defaultMiniMaxModel
	}
	return &MiniMaxAdapter{httpClient: httpClient, cfg: cfg}
}

type miniMaxResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	BaseResp struct {
		StatusCode int    `json:"status_code"`
		StatusMsg  string `json:"status_msg"`
	} `json:"base_resp"`
}

func (a *MiniMaxAdapter) Send(ctx context.Context, req Request) (string, error) {
	reqBody := map[string]interface{}{
		"model": a.cfg.Model,
		"messages": []ChatMessage{
			{Role: "system", Content: req.SystemInstruction},
			{Role: "user", Content: req.Text()},
		},
		"temperature": req.Temperature,
		"top_p":       0.95,
		"stream":      false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal minimax request failed: %w", err)
	}

	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/text/chatcompletion_v2"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build minimax request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("minimax request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read minimax response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", &StatusError{Provider: ProviderMiniMax, StatusCode: resp.StatusCode, Message: string(raw)}
	}

	var parsed miniMaxResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse minimax json failed: %w", err)
	}
	if code := parsed.BaseResp.StatusCode; code != 0 {
		return "", &StatusError{
			Provider:   ProviderMiniMax,
			StatusCode: miniMaxHTTPStatus(code),
			Code:       code,
			Message:    parsed.BaseResp.StatusMsg,
		}
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	return parsed.Choices[0].Message.Content, nil
}

// miniMaxHTTPStatus maps base_resp codes onto the statuses the retry policy understands.
func miniMaxHTTPStatus(code int) int {
	switch code {
	case 1002, 1039: // rpm / tpm rate limits
		return http.StatusTooManyRequests
	case 1000, 1001, 1013:
		return http.StatusInternalServerError
	case 1004:
		return http.StatusUnauthorized
	case 1008:
		return http.StatusPaymentRequired
	default:
		return http.StatusBadRequest
	}
}
