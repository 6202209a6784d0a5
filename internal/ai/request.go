package ai

import (
	"context"
	"strings"
)

// Tier selects between the heavier reasoning model and its lighter sibling.
type Tier int

const (
	TierHeavy Tier = iota
	TierLight
)

func (t Tier) String() string {
	if t == TierLight {
		return "light"
	}
	return "heavy"
}

// Depth scales the reasoning budget given to the heavy tier.
type Depth int

const (
	DepthStandard Depth = iota
	DepthDeep
)

// Part is either text or inline binary data with its media type.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

func (p Part) IsInline() bool {
	return len(p.Data) > 0
}

// Request is what an adapter sends in a single provider call.
type Request struct {
	SystemInstruction string
	Parts             []Part
	JSON              bool
	Temperature       float64
	MaxTokens         int
	Tier              Tier
	Depth             Depth
}

// Text joins the text parts. Text-only adapters never see inline parts.
func (r Request) Text() string {
	var b strings.Builder
	for _, p := range r.Parts {
		if !p.IsInline() {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Adapter translates a Request into one provider's wire format.
type Adapter interface {
	Send(ctx context.Context, req Request) (string, error)
}

// InlineImage is an existing image handed to an edit request.
type InlineImage struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator produces images as data URIs. An empty string means the model returned no image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, source *InlineImage) (string, error)
}
