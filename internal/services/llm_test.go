package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type scriptedProvider struct {
	name          string
	requiresModel bool
	replies       []string
	errs          []error
	calls         int
	lastReq       CompletionRequest
}

func (p *scriptedProvider) Name() string         { return p.name }
func (p *scriptedProvider) DefaultModel() string { return "default-model" }
func (p *scriptedProvider) RequiresModel() bool  { return p.requiresModel }
func (p *scriptedProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	i := p.calls
	p.calls++
	p.lastReq = req
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	reply := ""
	if i < len(p.replies) {
		reply = p.replies[i]
	}
	return reply, err
}

const validOutline = `{"title":"Deck","slides":[{"title":"One","content":["a","b"]}]}`

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond}
}

func TestGenerateStructure_Success(t *testing.T) {
	p := &scriptedProvider{name: ProviderOpenAI, replies: []string{validOutline}}
	svc := NewLLMService([]Provider{p}, fastRetry(), nil)

	structure, err := svc.GenerateStructure(context.Background(), StructureRequest{
		Text:         "source",
		Guidance:     "sales pitch",
		APIKey:       "k",
		Provider:     "OpenAI",
		SpeakerNotes: true,
	})
	if err != nil {
		t.Fatalf("GenerateStructure: %v", err)
	}
	if structure.Title != "Deck" || len(structure.Slides) != 1 {
		t.Errorf("Unexpected structure: %+v", structure)
	}
	if p.lastReq.Model != "default-model" {
		t.Errorf("Expected default model, got %q", p.lastReq.Model)
	}
	if p.lastReq.MaxTokens != 3000 || p.lastReq.Temperature != 0.7 {
		t.Errorf("Unexpected sampling settings: %+v", p.lastReq)
	}
	if !strings.Contains(p.lastReq.Prompt, "sales pitch") || !strings.Contains(p.lastReq.Prompt, "speaker notes") {
		t.Errorf("Prompt missing guidance or notes instruction")
	}
}

func TestGenerateStructure_RetriesThenSucceeds(t *testing.T) {
	p := &scriptedProvider{
		name:    ProviderAnthropic,
		replies: []string{"", "not json at all", validOutline},
		errs:    []error{errors.New("anthropic request failed: connection reset")},
	}
	svc := NewLLMService([]Provider{p}, fastRetry(), nil)

	if _, err := svc.GenerateStructure(context.Background(), StructureRequest{Text: "t", APIKey: "k", Provider: ProviderAnthropic}); err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if p.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", p.calls)
	}
}

func TestGenerateStructure_ExhaustsAttempts(t *testing.T) {
	p := &scriptedProvider{name: ProviderOpenAI, replies: []string{"{broken", "{broken", "{broken", validOutline}}
	svc := NewLLMService([]Provider{p}, fastRetry(), nil)

	_, err := svc.GenerateStructure(context.Background(), StructureRequest{Text: "t", APIKey: "k", Provider: ProviderOpenAI})
	if err == nil {
		t.Fatal("Expected failure after exhausting attempts")
	}
	if !strings.HasPrefix(err.Error(), "failed to generate presentation structure after 3 attempts: ") {
		t.Errorf("Unexpected error message %q", err.Error())
	}
	if !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("Expected wrapped ErrInvalidJSON, got %v", err)
	}
	if p.calls != 3 {
		t.Errorf("Expected exactly 3 calls, got %d", p.calls)
	}
}

func TestGenerateStructure_ProviderErrorKeepsClassification(t *testing.T) {
	authErr := &ProviderError{Provider: ProviderOpenAI, StatusCode: 401}
	p := &scriptedProvider{name: ProviderOpenAI, errs: []error{authErr, authErr, authErr}}
	svc := NewLLMService([]Provider{p}, fastRetry(), nil)

	_, err := svc.GenerateStructure(context.Background(), StructureRequest{Text: "t", APIKey: "bad", Provider: ProviderOpenAI})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected wrapped ProviderError, got %v", err)
	}
	if got := ClassifyError(err).StatusCode; got != 401 {
		t.Errorf("Expected 401 classification, got %d", got)
	}
}

func TestGenerateStructure_ConfigurationErrorsAreNotRetried(t *testing.T) {
	openRouter := &scriptedProvider{name: ProviderOpenRouter, requiresModel: true}
	svc := NewLLMService([]Provider{openRouter}, fastRetry(), nil)

	tests := []struct {
		name    string
		req     StructureRequest
		wantMsg string
	}{
		{"unknown provider", StructureRequest{Provider: "cohere"}, "Unsupported LLM provider: cohere"},
		{"openrouter without model", StructureRequest{Provider: ProviderOpenRouter}, "Model selection is required when using OpenRouter"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.GenerateStructure(context.Background(), tc.req)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Message != tc.wantMsg {
				t.Fatalf("Expected ValidationError %q, got %v", tc.wantMsg, err)
			}
		})
	}
	if openRouter.calls != 0 {
		t.Errorf("Expected no provider calls, got %d", openRouter.calls)
	}
}

func TestGenerateStructure_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &scriptedProvider{name: ProviderGemini}
	p.errs = []error{context.Canceled, context.Canceled, context.Canceled}
	cancel()

	svc := NewLLMService([]Provider{p}, RetryPolicy{MaxAttempts: 3, InitialInterval: time.Second}, nil)
	start := time.Now()
	_, err := svc.GenerateStructure(ctx, StructureRequest{Text: "t", APIKey: "k", Provider: ProviderGemini})
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if p.calls > 1 {
		t.Errorf("Expected at most one call after cancellation, got %d", p.calls)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Expected cancellation to skip backoff waits")
	}
}

func TestBackoffSchedule(t *testing.T) {
	svc := NewLLMService(nil, DefaultRetryPolicy(), nil)
	b := svc.buildBackoff()

	want := []time.Duration{2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("delay %d = %s, want %s", i+1, got, w)
		}
	}
	if got := b.NextBackOff(); got != -1 {
		t.Errorf("Expected stop after 2 retries, got %s", got)
	}
}

func TestSupportedProviders(t *testing.T) {
	svc := NewLLMService(DefaultProviders("http://localhost"), DefaultRetryPolicy(), nil)
	infos := svc.SupportedProviders()

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	if strings.Join(names, ",") != "anthropic,gemini,openai,openrouter" {
		t.Errorf("Unexpected providers %v", names)
	}

	info, ok := svc.Lookup(" OpenRouter ")
	if !ok || !info.RequiresModel {
		t.Errorf("Expected OpenRouter lookup to require a model, got %+v %v", info, ok)
	}
	if svc.IsSupported("cohere") {
		t.Error("Expected cohere to be unsupported")
	}
}
