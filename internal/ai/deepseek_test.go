package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{"id":"c1","object":"chat.completion","created":1,"model":"deepseek-chat",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"[{\"field\":\"budget\"}]"}}]}`

func TestDeepSeekSend(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ds-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	a := NewDeepSeekAdapter(ChatConfig{BaseURL: srv.URL, APIKey: "ds-key"}, srv.Client())
	out, err := a.Send(context.Background(), Request{
		SystemInstruction: "extract",
		Parts:             []Part{{Text: "docs"}},
		JSON:              true,
		Temperature:       0.1,
		MaxTokens:         4000,
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"field":"budget"}]`, out)

	assert.Equal(t, defaultDeepSeekModel, body["model"])
	assert.Equal(t, float64(4000), body["max_tokens"])
	assert.Equal(t, 0.1, body["temperature"])
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, body["response_format"])
	msgs := body["messages"].([]interface{})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
	assert.Equal(t, "docs", msgs[1].(map[string]interface{})["content"])
}

func TestDeepSeekOmitsResponseFormatForText(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	_, err := NewDeepSeekAdapter(ChatConfig{BaseURL: srv.URL, APIKey: "k"}, srv.Client()).Send(context.Background(), Request{})
	require.NoError(t, err)
	_, ok := body["response_format"]
	assert.False(t, ok)
	assert.Equal(t, float64(defaultDeepSeekMaxTokens), body["max_tokens"])
}

func TestDeepSeekRateLimitIsStatusError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	_, err := NewDeepSeekAdapter(ChatConfig{BaseURL: srv.URL, APIKey: "k"}, srv.Client()).Send(context.Background(), Request{})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, ProviderDeepSeek, se.Provider)
	assert.Equal(t, 1, calls, "sdk retries disabled")
}
