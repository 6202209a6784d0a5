package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	defaultDeepSeekModel     = "deepseek-chat"
	defaultDeepSeekMaxTokens = 4000
)

// DeepSeekAdapter talks to an OpenAI-compatible /chat/completions endpoint.
type DeepSeekAdapter struct {
	client openai.Client
	model  string
}

func NewDeepSeekAdapter(cfg ChatConfig, httpClient *http.Client) *DeepSeekAdapter {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retrier owns retries; the SDK must not multiply attempts.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	model := cfg.Model
	if model == "" {
		model = defaultDeepSeekModel
	}
	return &DeepSeekAdapter{client: openai.NewClient(opts...), model: model}
}

func (a *DeepSeekAdapter) Send(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultDeepSeekMaxTokens
	}
	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemInstruction),
			openai.UserMessage(req.Text()),
		},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(req.Temperature),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: ProviderDeepSeek, StatusCode: apiErr.StatusCode, Message: apiErr.Message}
		}
		return "", fmt.Errorf("deepseek chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	return resp.Choices[0].Message.Content, nil
}
