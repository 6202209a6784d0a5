package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"smartaudit/internal/ai"
	"smartaudit/internal/model"
	"smartaudit/internal/ranking"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNoDocuments     = errors.New("no documents to analyze")
	ErrNoExtractedData = errors.New("extracted data is required before drafting an opinion")
)

// Chatter is the orchestration surface the domain operations depend on.
type Chatter interface {
	Chat(ctx context.Context, cfg ai.CallConfig, in ai.ChatInput) (string, error)
	GenerateImage(ctx context.Context, prompt string, source *ai.InlineImage) (string, error)
	Policy(p ai.Provider) ai.ContentPolicy
}

// Assistant implements the named AI operations. It keeps no state between calls.
type Assistant struct {
	chat Chatter
	log  *zap.Logger
}

func NewAssistant(chat Chatter, log *zap.Logger) *Assistant {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assistant{chat: chat, log: log}
}

// KnowledgeAnswer is a knowledge-base reply with its citations pulled out.
type KnowledgeAnswer struct {
	Answer    string   `json:"answer"`
	Display   string   `json:"display"`
	Citations []string `json:"citations"`
	Sources   []string `json:"sources"`
}

// ExtractKeyInformation asks for risk rows over docs checked against the active
// rules and references. Unparseable answers yield an empty slice.
func (a *Assistant) ExtractKeyInformation(ctx context.Context, cfg ai.CallConfig, docs []model.ReviewDocument, rules []model.Rule, refs []model.ReferenceDocument) ([]model.ExtractedInfo, error) {
	if len(docs) == 0 {
		return []model.ExtractedInfo{}, nil
	}

	policy := a.chat.Policy(cfg.Provider)
	prompt := "RULES:\n" + formatRules(rules)
	if refContext := formatReferences(refs, policy.MaxContextItems); refContext != "" {
		prompt += "\n\nREFERENCE MATERIAL:\n" + refContext
	}
	prompt += "\n\nPROPOSAL DOCUMENTS (See below):"

	out, err := a.chat.Chat(ctx, cfg, ai.ChatInput{
		SystemInstruction: extractionInstruction(cfg.Language),
		Prompt:            prompt,
		Documents:         toAIDocuments(docs),
		JSON:              true,
		MaxTokens:         extractionMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	var rows []model.ExtractedInfo
	if !a.decodeJSONArray(out, &rows, "extraction") || rows == nil {
		return []model.ExtractedInfo{}, nil
	}
	return rows, nil
}

// GenerateSummary returns the five-section executive summary of docs. A non-empty
// focus is passed to the model as the user's own directive.
func (a *Assistant) GenerateSummary(ctx context.Context, cfg ai.CallConfig, docs []model.ReviewDocument, focus string) (string, error) {
	if len(docs) == 0 {
		return "", ErrNoDocuments
	}
	out, err := a.chat.Chat(ctx, cfg, ai.ChatInput{
		SystemInstruction: summaryInstruction(cfg.Language, focus),
		Prompt:            "PROPOSAL DOCUMENTS (See below):",
		Documents:         toAIDocuments(docs),
		MaxTokens:         summaryMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// DraftReviewOpinion writes the formal opinion. It needs the extraction result and
// runs with the deepest reasoning budget available.
func (a *Assistant) DraftReviewOpinion(ctx context.Context, cfg ai.CallConfig, docs []model.ReviewDocument, rules []model.Rule, extracted []model.ExtractedInfo) (string, error) {
	if len(extracted) == 0 {
		return "", ErrNoExtractedData
	}
	if len(docs) == 0 {
		return "", ErrNoDocuments
	}
	extraction, err := json.Marshal(extracted)
	if err != nil {
		return "", fmt.Errorf("encode extracted data failed: %w", err)
	}

	out, err := a.chat.Chat(ctx, cfg, ai.ChatInput{
		SystemInstruction: opinionInstruction(cfg.Language, string(extraction)),
		Prompt:            "RULES:\n" + formatRules(rules) + "\n\nPROPOSAL DOCUMENTS (See below):",
		Documents:         toAIDocuments(docs),
		MaxTokens:         opinionMaxTokens,
		Depth:             ai.DepthDeep,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Categorize returns the single label the model picked. The label is not checked
// against categories.
func (a *Assistant) Categorize(ctx context.Context, cfg ai.CallConfig, text string, categories []string) (string, error) {
	if len(categories) == 0 {
		return "", ErrInvalidInput
	}
	out, err := a.chat.Chat(ctx, cfg, ai.ChatInput{
		SystemInstruction: categorizeInstruction(categories),
		Prompt:            ai.Truncate(text, a.chat.Policy(cfg.Provider).MaxDocChars),
		MaxTokens:         categorizeMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ExtractKeywords asks for n keywords. Anything but a JSON string array yields an empty slice.
func (a *Assistant) ExtractKeywords(ctx context.Context, cfg ai.CallConfig, text string, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	out, err := a.chat.Chat(ctx, cfg, ai.ChatInput{
		SystemInstruction: keywordsInstruction(n),
		Prompt:            ai.Truncate(text, a.chat.Policy(cfg.Provider).MaxDocChars),
		JSON:              true,
		MaxTokens:         keywordsMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	var keywords []string
	if !a.decodeJSONArray(out, &keywords, "keywords") || keywords == nil {
		return []string{}, nil
	}
	return keywords, nil
}

// QueryKnowledgeBase answers query from the rules and references that share
// keywords with it. Fewer items are sent to providers with smaller windows.
func (a *Assistant) QueryKnowledgeBase(ctx context.Context, cfg ai.CallConfig, query string, rules []model.Rule, refs []model.ReferenceDocument) (*KnowledgeAnswer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}

	candidates := append(ranking.FromRules(model.ActiveRules(rules)), ranking.FromReferences(model.ActiveReferences(refs))...)
	selected := ranking.Rank(query, candidates, a.chat.Policy(cfg.Provider).MaxContextItems)

	out, err := a.chat.Chat(ctx, cfg, ai.ChatInput{
		SystemInstruction: knowledgeBaseInstruction,
		Prompt:            "CONTEXT:\n" + ranking.FormatSources(selected) + "\n\nQUESTION: " + query,
		MaxTokens:         queryMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(selected))
	for _, it := range selected {
		sources = append(sources, it.Title)
	}
	answer := strings.TrimSpace(out)
	return &KnowledgeAnswer{
		Answer:    answer,
		Display:   ranking.StripSourceMarkers(answer),
		Citations: ranking.ParseCitations(answer),
		Sources:   sources,
	}, nil
}

// GenerateIllustration draws a poster for docs. An empty result means the model
// returned no image.
func (a *Assistant) GenerateIllustration(ctx context.Context, lang ai.Language, docs []model.ReviewDocument) (string, error) {
	if len(docs) == 0 {
		return "", ErrNoDocuments
	}
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.PlainText())
	}
	source := ai.Truncate(strings.Join(texts, "\n\n"), illustrationSourceChars)
	return a.chat.GenerateImage(ctx, illustrationPrompt(lang, source), nil)
}

// GenerateCreativeVisual draws an image for one distill result or slide.
func (a *Assistant) GenerateCreativeVisual(ctx context.Context, lang ai.Language, content string, t model.DistillType, themeName string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrInvalidInput
	}
	prompt := creativeVisualPrompt(ai.Truncate(content, visualSourceChars), t, lang, themeName)
	return a.chat.GenerateImage(ctx, prompt, nil)
}

// ReimagineVisual edits an existing data-URI image following instruction.
func (a *Assistant) ReimagineVisual(ctx context.Context, current, instruction string) (string, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", ErrInvalidInput
	}
	source, err := ai.ParseDataURI(current)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return a.chat.GenerateImage(ctx, instruction, source)
}

// decodeJSONArray fills dst from a model answer. JSON-object mode providers may
// wrap the array in an object, so an array-valued field is accepted too.
func (a *Assistant) decodeJSONArray(raw string, dst interface{}, op string) bool {
	text := stripCodeFence(raw)
	if text == "" {
		return false
	}
	if err := json.Unmarshal([]byte(text), dst); err == nil {
		return true
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &wrapper); err == nil {
		for _, v := range wrapper {
			if err := json.Unmarshal(v, dst); err == nil {
				return true
			}
		}
	}
	a.log.Warn("model answer is not a json array", zap.String("op", op), zap.Int("length", len(text)))
	return false
}

func stripCodeFence(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func formatRules(rules []model.Rule) string {
	active := model.ActiveRules(rules)
	blocks := make([]string, 0, len(active))
	for _, r := range active {
		blocks = append(blocks, fmt.Sprintf("[%s] %s: %s", r.Category, r.Title, r.Content))
	}
	return strings.Join(blocks, "\n\n")
}

func formatReferences(refs []model.ReferenceDocument, limit int) string {
	active := model.ActiveReferences(refs)
	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}
	blocks := make([]string, 0, len(active))
	for _, r := range active {
		blocks = append(blocks, fmt.Sprintf("[%s] %s: %s", r.Category, r.Title, r.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// toAIDocuments hands PDFs to multimodal providers as bytes and keeps their
// extracted text for everyone else.
func toAIDocuments(docs []model.ReviewDocument) []ai.Document {
	out := make([]ai.Document, 0, len(docs))
	for _, d := range docs {
		doc := ai.Document{Name: d.Name, Text: d.PlainText()}
		if d.IsInlinePDF() {
			if raw, err := base64.StdEncoding.DecodeString(d.Content); err == nil {
				doc.Inline = raw
				doc.MIMEType = d.MIMEType
			}
		}
		out = append(out, doc)
	}
	return out
}
