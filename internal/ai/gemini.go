package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const jsonMIMEType = "application/json"

type GeminiConfig struct {
	APIKey             string
	BaseURL            string
	HeavyModel         string
	LightModel         string
	ImageModel         string
	ThinkingBudget     int
	DeepThinkingBudget int
}

// contentGenerator is the part of genai.Models the adapter uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAdapter drives the multimodal reasoning family: text with inline PDFs,
// a thinking budget on the heavy tier, and image generation.
type GeminiAdapter struct {
	models contentGenerator
	cfg    GeminiConfig
}

func NewGeminiAdapter(ctx context.Context, cfg GeminiConfig) (*GeminiAdapter, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed: %w", err)
	}
	return newGeminiAdapter(client.Models, cfg), nil
}

func newGeminiAdapter(models contentGenerator, cfg GeminiConfig) *GeminiAdapter {
	return &GeminiAdapter{models: models, cfg: cfg}
}

func (a *GeminiAdapter) Send(ctx context.Context, req Request) (string, error) {
	model, config := a.buildConfig(req)
	contents := []*genai.Content{genai.NewContentFromParts(toGenaiParts(req.Parts), genai.RoleUser)}

	resp, err := a.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini %s generate content failed: %w", model, geminiError(err))
	}
	return resp.Text(), nil
}

func (a *GeminiAdapter) buildConfig(req Request) (string, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = jsonMIMEType
	}
	if req.Tier == TierLight {
		return a.cfg.LightModel, config
	}

	budget := a.cfg.ThinkingBudget
	if req.Depth == DepthDeep {
		budget = a.cfg.DeepThinkingBudget
	}
	if budget > 0 {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(int32(budget))}
	}
	return a.cfg.HeavyModel, config
}

// GenerateImage asks the image model for a picture, optionally editing source.
func (a *GeminiAdapter) GenerateImage(ctx context.Context, prompt string, source *InlineImage) (string, error) {
	var parts []*genai.Part
	if source != nil && len(source.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(source.Data, source.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := a.models.GenerateContent(ctx, a.cfg.ImageModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini %s generate image failed: %w", a.cfg.ImageModel, geminiError(err))
	}
	return firstImageDataURI(resp), nil
}

// geminiError lifts the SDK's APIError into a StatusError.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: ProviderGemini, StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{Provider: ProviderGemini, StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return err
}

func firstImageDataURI(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := part.InlineData.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data)
	}
	return ""
}

func toGenaiParts(parts []Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsInline() {
			out = append(out, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		if p.Text == "" {
			continue
		}
		out = append(out, genai.NewPartFromText(p.Text))
	}
	return out
}

// Unavailable stands in for an adapter that could not be constructed, such as
// Gemini without an API key. Every call fails with err.
type Unavailable struct {
	Err error
}

func (u Unavailable) Send(context.Context, Request) (string, error) {
	return "", u.Err
}

func (u Unavailable) GenerateImage(context.Context, string, *InlineImage) (string, error) {
	return "", u.Err
}
