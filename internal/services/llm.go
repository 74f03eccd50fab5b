package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/metrics"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
)

const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

const (
	structureMaxTokens   = 3000
	structureTemperature = 0.7
)

// CompletionRequest is a single-turn prompt sent to a provider.
type CompletionRequest struct {
	APIKey       string
	Model        string
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float32
}

// Provider is one LLM backend able to answer a single prompt.
type Provider interface {
	Name() string
	DefaultModel() string
	// RequiresModel reports whether the caller must choose a model.
	RequiresModel() bool
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ProviderInfo is the public description of a provider.
type ProviderInfo struct {
	Name          string `json:"name"`
	DefaultModel  string `json:"defaultModel,omitempty"`
	RequiresModel bool   `json:"requiresModel"`
}

type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: 2 * time.Second}
}

// StructureRequest is everything needed to ask a provider for a slide outline.
type StructureRequest struct {
	Text         string
	Guidance     string
	APIKey       string
	Provider     string
	Model        string
	SpeakerNotes bool
}

type LLMService struct {
	providers    map[string]Provider
	retry        RetryPolicy
	buildBackoff func() backoff.BackOff
	metrics      *metrics.Recorder
}

func NewLLMService(providers []Provider, retry RetryPolicy, recorder *metrics.Recorder) *LLMService {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = DefaultRetryPolicy().InitialInterval
	}

	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	s := &LLMService{
		providers: byName,
		retry:     retry,
		metrics:   recorder,
	}
	s.buildBackoff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = s.retry.InitialInterval
		b.Multiplier = 2
		b.RandomizationFactor = 0
		b.MaxInterval = 64 * s.retry.InitialInterval
		b.MaxElapsedTime = 0
		b.Reset()
		return backoff.WithMaxRetries(b, uint64(s.retry.MaxAttempts-1))
	}
	return s
}

// DefaultProviders returns the four built-in providers.
func DefaultProviders(httpReferer string) []Provider {
	return []Provider{
		NewOpenAIProvider(),
		NewAnthropicProvider(),
		NewGeminiProvider(),
		NewOpenRouterProvider(httpReferer),
	}
}

// SupportedProviders lists the registered providers sorted by name.
func (s *LLMService) SupportedProviders() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, ProviderInfo{
			Name:          p.Name(),
			DefaultModel:  p.DefaultModel(),
			RequiresModel: p.RequiresModel(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsSupported reports whether name is a registered provider.
func (s *LLMService) IsSupported(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Lookup returns the description of a registered provider.
func (s *LLMService) Lookup(name string) (ProviderInfo, bool) {
	p, ok := s.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ProviderInfo{}, false
	}
	return ProviderInfo{Name: p.Name(), DefaultModel: p.DefaultModel(), RequiresModel: p.RequiresModel()}, true
}

// GenerateStructure prompts the selected provider and parses its reply into
// a slide outline, retrying failed calls and unparseable replies.
func (s *LLMService) GenerateStructure(ctx context.Context, req StructureRequest) (*models.PresentationStructure, error) {
	provider, err := s.resolveProvider(req.Provider, req.Model)
	if err != nil {
		return nil, err
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = provider.DefaultModel()
	}

	completion := CompletionRequest{
		APIKey:       req.APIKey,
		Model:        model,
		SystemPrompt: presentationSystemPrompt,
		Prompt:       BuildStructurePrompt(req.Text, req.Guidance, req.SpeakerNotes),
		MaxTokens:    structureMaxTokens,
		Temperature:  structureTemperature,
	}

	var (
		structure *models.PresentationStructure
		attempts  int
	)
	operation := func() error {
		attempts++
		raw, err := provider.Complete(ctx, completion)
		if err == nil {
			structure, err = ParseStructure(raw)
		}
		s.metrics.ObserveLLMAttempt(provider.Name(), err)
		if err != nil {
			log.Printf("LLM attempt %d/%d via %s (%s) failed: %v", attempts, s.retry.MaxAttempts, provider.Name(), model, err)
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(s.buildBackoff(), ctx)); err != nil {
		return nil, fmt.Errorf("failed to generate presentation structure after %d attempts: %w", attempts, err)
	}

	log.Printf("LLM structure generated via %s (%s): %d slides in %d attempt(s)", provider.Name(), model, len(structure.Slides), attempts)
	return structure, nil
}

func (s *LLMService) resolveProvider(name, model string) (Provider, error) {
	provider, ok := s.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, &ValidationError{Message: fmt.Sprintf("Unsupported LLM provider: %s", name)}
	}
	if provider.RequiresModel() && strings.TrimSpace(model) == "" {
		return nil, &ValidationError{Message: "Model selection is required when using OpenRouter"}
	}
	return provider, nil
}
