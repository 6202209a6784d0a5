package ai

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Credentials for one chat provider. Read fresh for every call.
type Credentials struct {
	APIKey  string
	BaseURL string
}

func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// CallConfig is the per-call provider selection, assembled where persisted
// settings meet orchestration.
type CallConfig struct {
	Provider Provider
	Language Language
	DeepSeek Credentials
	MiniMax  Credentials
}

func (c CallConfig) credentials(p Provider) Credentials {
	switch p {
	case ProviderDeepSeek:
		return c.DeepSeek
	case ProviderMiniMax:
		return c.MiniMax
	}
	return Credentials{}
}

// ChatInput is one logical request, independent of the provider that serves it.
type ChatInput struct {
	SystemInstruction string
	// Prompt leads the user turn; Documents follow it in provider-specific form.
	Prompt      string
	Documents   []Document
	JSON        bool
	Temperature *float64
	// MaxTokens bounds chat-provider answers; the reasoning model ignores it.
	MaxTokens int
	Depth     Depth
}

// AdapterFactory builds a chat adapter from call-time credentials.
type AdapterFactory func(Credentials) Adapter

// fallbackStep is one attempt in a plan. advance decides whether its failure
// hands over to the next step or propagates.
type fallbackStep struct {
	name     string
	provider Provider
	adapter  Adapter
	tier     Tier
	advance  func(error) bool
}

type Dispatcher struct {
	gemini    Adapter
	images    ImageGenerator
	factories map[Provider]AdapterFactory
	retrier   *Retrier
	policies  map[Provider]ContentPolicy
	log       *zap.Logger
}

type DispatcherOption func(*Dispatcher)

func WithPolicies(policies map[Provider]ContentPolicy) DispatcherOption {
	return func(d *Dispatcher) {
		for p, policy := range policies {
			d.policies[p] = policy
		}
	}
}

func WithLogger(log *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

func WithAdapterFactory(p Provider, f AdapterFactory) DispatcherOption {
	return func(d *Dispatcher) {
		d.factories[p] = f
	}
}

// NewDispatcher wires the reasoning adapter, which is also the image generator
// and the fallback of every plan.
func NewDispatcher(gemini Adapter, images ImageGenerator, retrier *Retrier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		gemini:    gemini,
		images:    images,
		factories: map[Provider]AdapterFactory{},
		retrier:   retrier,
		policies:  DefaultPolicies(),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Policy returns the content limits of p.
func (d *Dispatcher) Policy(p Provider) ContentPolicy {
	if policy, ok := d.policies[p]; ok {
		return policy
	}
	return d.policies[ProviderGemini]
}

// Chat serves in with the provider named in cfg, degrading to the reasoning
// model when credentials are missing or the provider keeps failing.
func (d *Dispatcher) Chat(ctx context.Context, cfg CallConfig, in ChatInput) (string, error) {
	return d.runChain(ctx, d.plan(cfg), cfg.Language, in)
}

func (d *Dispatcher) plan(cfg CallConfig) []fallbackStep {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderGemini
	}

	light := fallbackStep{name: "gemini-light", provider: ProviderGemini, adapter: d.gemini, tier: TierLight, advance: never}
	if provider == ProviderGemini {
		return []fallbackStep{
			{name: "gemini-heavy", provider: ProviderGemini, adapter: d.gemini, tier: TierHeavy, advance: IsQuotaExhausted},
			light,
		}
	}

	factory, ok := d.factories[provider]
	creds := cfg.credentials(provider)
	if !ok || !creds.Configured() {
		d.log.Info("provider credential missing, routing to gemini", zap.String("provider", string(provider)))
		return d.plan(CallConfig{Provider: ProviderGemini, Language: cfg.Language})
	}
	return []fallbackStep{
		{name: strings.ToLower(string(provider)), provider: provider, adapter: factory(creds), tier: TierHeavy, advance: unlessCanceled},
		light,
	}
}

func (d *Dispatcher) runChain(ctx context.Context, steps []fallbackStep, lang Language, in ChatInput) (string, error) {
	var lastErr error
	for i, step := range steps {
		req := d.buildRequest(step, lang, in)
		out, err := d.retrier.Do(ctx, step.name, func(ctx context.Context) (string, error) {
			return step.adapter.Send(ctx, req)
		})
		if err == nil {
			return out, nil
		}
		lastErr = err
		if i == len(steps)-1 || !step.advance(err) {
			break
		}
		d.log.Warn("provider failed, falling back",
			zap.String("from", step.name),
			zap.String("to", steps[i+1].name),
			zap.Error(err))
	}
	return "", lastErr
}

func (d *Dispatcher) buildRequest(step fallbackStep, lang Language, in ChatInput) Request {
	temperature := step.provider.DefaultTemperature()
	if in.Temperature != nil {
		temperature = *in.Temperature
	}
	return Request{
		SystemInstruction: WithLanguage(in.SystemInstruction, lang),
		Parts:             RenderParts(step.provider, in.Prompt, in.Documents, d.Policy(step.provider)),
		JSON:              in.JSON,
		Temperature:       temperature,
		MaxTokens:         in.MaxTokens,
		Tier:              step.tier,
		Depth:             in.Depth,
	}
}

// GenerateImage runs an image request on the reasoning family. There is no
// fallback below it; failures after retries propagate.
func (d *Dispatcher) GenerateImage(ctx context.Context, prompt string, source *InlineImage) (string, error) {
	return d.retrier.Do(ctx, "gemini-image", func(ctx context.Context) (string, error) {
		return d.images.GenerateImage(ctx, prompt, source)
	})
}

func never(error) bool { return false }

func unlessCanceled(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
