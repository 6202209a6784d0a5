package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
	}}}
}

var testGeminiConfig = GeminiConfig{
	HeavyModel:         "gemini-3-pro-preview",
	LightModel:         "gemini-3-flash-preview",
	ImageModel:         "gemini-2.5-flash-image",
	ThinkingBudget:     8192,
	DeepThinkingBudget: 32768,
}

func TestGeminiHeavyTierCarriesThinkingBudget(t *testing.T) {
	tests := []struct {
		name   string
		depth  Depth
		budget int32
	}{
		{"standard", DepthStandard, 8192},
		{"deep", DepthDeep, 32768},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeModels{resp: textResponse("ok")}
			a := newGeminiAdapter(fake, testGeminiConfig)

			out, err := a.Send(context.Background(), Request{SystemInstruction: "sys", Parts: []Part{{Text: "hi"}}, Tier: TierHeavy, Depth: tt.depth, Temperature: 0.7})
			require.NoError(t, err)
			assert.Equal(t, "ok", out)
			assert.Equal(t, "gemini-3-pro-preview", fake.model)
			require.NotNil(t, fake.config.ThinkingConfig)
			assert.Equal(t, tt.budget, *fake.config.ThinkingConfig.ThinkingBudget)
			assert.InDelta(t, 0.7, *fake.config.Temperature, 1e-6)
		})
	}
}

func TestGeminiLightTierHasNoThinking(t *testing.T) {
	fake := &fakeModels{resp: textResponse("[]")}
	a := newGeminiAdapter(fake, testGeminiConfig)

	_, err := a.Send(context.Background(), Request{Tier: TierLight, JSON: true, Depth: DepthDeep})
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-flash-preview", fake.model)
	assert.Nil(t, fake.config.ThinkingConfig)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
	assert.Nil(t, fake.config.SystemInstruction)
}

func TestGeminiSendsInlineParts(t *testing.T) {
	fake := &fakeModels{resp: textResponse("ok")}
	a := newGeminiAdapter(fake, testGeminiConfig)

	_, err := a.Send(context.Background(), Request{Parts: []Part{
		{Text: "lead"},
		{Text: ""},
		{Data: []byte("%PDF-1.4"), MIMEType: "application/pdf"},
	}})
	require.NoError(t, err)
	require.Len(t, fake.contents, 1)
	parts := fake.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "lead", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "application/pdf", parts[1].InlineData.MIMEType)
}

func TestGeminiWrapsErrors(t *testing.T) {
	fake := &fakeModels{err: errors.New("Error 429, Status: RESOURCE_EXHAUSTED")}
	_, err := newGeminiAdapter(fake, testGeminiConfig).Send(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, IsQuotaExhausted(err))
}

func TestGeminiAPIErrorBecomesStatusError(t *testing.T) {
	tests := []struct {
		name      string
		apiErr    error
		status    int
		transient bool
	}{
		{"rate limited", genai.APIError{Code: 429, Message: "Resource has been exhausted", Status: "RESOURCE_EXHAUSTED"}, 429, true},
		{"unavailable", genai.APIError{Code: 503, Message: "overloaded", Status: "UNAVAILABLE"}, 503, true},
		{"bad request", genai.APIError{Code: 400, Message: "max 1500 tokens", Status: "INVALID_ARGUMENT"}, 400, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeModels{err: tt.apiErr}
			_, err := newGeminiAdapter(fake, testGeminiConfig).Send(context.Background(), Request{})

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, ProviderGemini, se.Provider)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}

	_, err := newGeminiAdapter(&fakeModels{err: genai.APIError{Code: 500, Message: "boom"}}, testGeminiConfig).
		GenerateImage(context.Background(), "draw", nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.StatusCode)
}

func TestGeminiGenerateImage(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "here you go"},
			{InlineData: &genai.Blob{Data: []byte{0x89, 0x50}, MIMEType: "image/jpeg"}},
		}},
	}}}}
	a := newGeminiAdapter(fake, testGeminiConfig)

	uri, err := a.GenerateImage(context.Background(), "draw", &InlineImage{Data: []byte{1}, MIMEType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,iVA=", uri)
	assert.Equal(t, "gemini-2.5-flash-image", fake.model)

	parts := fake.contents[0].Parts
	require.Len(t, parts, 2)
	assert.NotNil(t, parts[0].InlineData, "source image precedes the prompt")
	assert.Equal(t, "draw", parts[1].Text)
}

func TestGeminiGenerateImageWithoutImagePart(t *testing.T) {
	fake := &fakeModels{resp: textResponse("no image today")}
	uri, err := newGeminiAdapter(fake, testGeminiConfig).GenerateImage(context.Background(), "draw", nil)
	require.NoError(t, err)
	assert.Empty(t, uri)
}
