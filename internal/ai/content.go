package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const truncatedMarker = "\n...[truncated]"

// Document is a proposal document ready for a prompt. Inline carries the raw
// bytes of a PDF for multimodal providers; Text is what text-only providers read.
type Document struct {
	Name     string
	Text     string
	Inline   []byte
	MIMEType string
}

// ContentPolicy bounds how much material one provider call may carry.
type ContentPolicy struct {
	MaxDocChars     int
	MaxContextItems int
}

func DefaultPolicies() map[Provider]ContentPolicy {
	chat := ContentPolicy{MaxDocChars: 25000, MaxContextItems: 8}
	return map[Provider]ContentPolicy{
		ProviderGemini:   {MaxDocChars: 100000, MaxContextItems: 15},
		ProviderDeepSeek: chat,
		ProviderMiniMax:  chat,
	}
}

// Truncate caps s to max runes. Zero or negative max disables the cap.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + truncatedMarker
}

// RenderParts lays out a prompt for one provider: the lead text followed by each
// document between START/END markers. Multimodal providers get PDFs inline.
func RenderParts(provider Provider, lead string, docs []Document, policy ContentPolicy) []Part {
	if !provider.Multimodal() {
		return []Part{{Text: renderText(lead, docs, policy)}}
	}

	parts := []Part{{Text: lead}}
	for _, doc := range docs {
		parts = append(parts, Part{Text: fmt.Sprintf("\n\n--- START DOCUMENT: %s ---\n", doc.Name)})
		if len(doc.Inline) > 0 {
			parts = append(parts,
				Part{Text: fmt.Sprintf("(PDF Attachment: %s)", doc.Name)},
				Part{Data: doc.Inline, MIMEType: doc.MIMEType},
			)
		} else {
			parts = append(parts, Part{Text: Truncate(doc.Text, policy.MaxDocChars)})
		}
		parts = append(parts, Part{Text: fmt.Sprintf("\n--- END DOCUMENT: %s ---\n", doc.Name)})
	}
	return parts
}

func renderText(lead string, docs []Document, policy ContentPolicy) string {
	var b strings.Builder
	b.WriteString(lead)
	for _, doc := range docs {
		fmt.Fprintf(&b, "\n--- START DOCUMENT: %s ---\n", doc.Name)
		b.WriteString(Truncate(doc.Text, policy.MaxDocChars))
		fmt.Fprintf(&b, "\n--- END DOCUMENT: %s ---\n", doc.Name)
	}
	return b.String()
}
