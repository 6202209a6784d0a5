package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "abc", Truncate("abc", 0))
	assert.Equal(t, "采购"+truncatedMarker, Truncate("采购预算", 2))
}

func TestRenderPartsGeminiInlinesPDF(t *testing.T) {
	docs := []Document{
		{Name: "a.pdf", Text: "extracted", Inline: []byte("%PDF"), MIMEType: "application/pdf"},
		{Name: "b.txt", Text: "plain body"},
	}
	parts := RenderParts(ProviderGemini, "lead", docs, ContentPolicy{MaxDocChars: 100})

	require.Len(t, parts, 8)
	assert.Equal(t, "lead", parts[0].Text)
	assert.Equal(t, "(PDF Attachment: a.pdf)", parts[2].Text)
	assert.True(t, parts[3].IsInline())
	assert.Equal(t, "application/pdf", parts[3].MIMEType)
	assert.Equal(t, "plain body", parts[6].Text)
}

func TestRenderPartsChatUsesTextAndCap(t *testing.T) {
	docs := []Document{
		{Name: "a.pdf", Text: strings.Repeat("x", 50), Inline: []byte("%PDF"), MIMEType: "application/pdf"},
	}
	parts := RenderParts(ProviderDeepSeek, "lead", docs, ContentPolicy{MaxDocChars: 10})

	require.Len(t, parts, 1)
	assert.False(t, parts[0].IsInline())
	text := parts[0].Text
	assert.True(t, strings.HasPrefix(text, "lead\n--- START DOCUMENT: a.pdf ---\n"))
	assert.Contains(t, text, strings.Repeat("x", 10)+truncatedMarker)
	assert.NotContains(t, text, strings.Repeat("x", 11))
	assert.True(t, strings.HasSuffix(text, "--- END DOCUMENT: a.pdf ---\n"))
}

func TestParseDataURI(t *testing.T) {
	img, err := ParseDataURI("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, []byte("hello"), img.Data)

	for _, bad := range []string{"", "image/png;base64,aGVsbG8=", "data:image/png,aGVsbG8=", "data:image/png;base64,!!"} {
		_, err := ParseDataURI(bad)
		assert.ErrorIs(t, err, ErrInvalidDataURI, bad)
	}
}

func TestParseProviderAndLanguage(t *testing.T) {
	p, err := ParseProvider("")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p)
	p, err = ParseProvider("deepseek")
	require.NoError(t, err)
	assert.Equal(t, ProviderDeepSeek, p)
	_, err = ParseProvider("gpt")
	assert.Error(t, err)

	lang, err := ParseLanguage("EN")
	require.NoError(t, err)
	assert.Equal(t, LanguageEN, lang)
	assert.Contains(t, WithLanguage("Be brief.", LanguageZH), "简体中文")
	assert.Equal(t, 0.7, ProviderGemini.DefaultTemperature())
	assert.Equal(t, 0.1, ProviderMiniMax.DefaultTemperature())
}
