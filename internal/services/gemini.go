package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultGeminiConcurrency = 4

// GeminiProvider calls Gemini through the genai SDK. A client is built per
// request because the API key belongs to the caller.
type GeminiProvider struct {
	timeout  time.Duration
	options  []option.ClientOption
	rateChan chan struct{} // Token bucket
}

func NewGeminiProvider(opts ...option.ClientOption) *GeminiProvider {
	rateChan := make(chan struct{}, defaultGeminiConcurrency)
	for i := 0; i < defaultGeminiConcurrency; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiProvider{
		timeout:  60 * time.Second,
		options:  opts,
		rateChan: rateChan,
	}
}

func (p *GeminiProvider) Name() string         { return ProviderGemini }
func (p *GeminiProvider) DefaultModel() string { return "gemini-pro" }
func (p *GeminiProvider) RequiresModel() bool  { return false }

// acquireRate blocks until a rate slot is available
func (p *GeminiProvider) acquireRate(ctx context.Context) error {
	select {
	case <-p.rateChan:
		return nil
	case <-ctx.Done():
		if isTimeout(ctx.Err()) {
			return fmt.Errorf("timeout waiting for Gemini rate slot: %w", ctx.Err())
		}
		return ctx.Err()
	}
}

func (p *GeminiProvider) releaseRate() {
	p.rateChan <- struct{}{}
}

func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.acquireRate(ctx); err != nil {
		return "", err
	}
	defer p.releaseRate()

	opts := append([]option.ClientOption{option.WithAPIKey(req.APIKey)}, p.options...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", geminiError(err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonUnspecified {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s returned an empty response", ProviderGemini)
	}
	return text, nil
}

// geminiError maps SDK status codes onto the same error vocabulary the HTTP
// providers use.
func geminiError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%s request timeout: %w", ProviderGemini, err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("Gemini API error: %w", err)
	}

	var code int
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		code = 401
	case codes.ResourceExhausted:
		code = 429
	case codes.DeadlineExceeded:
		code = 408
	default:
		// Invalid keys surface as InvalidArgument with "API key not valid"
		return fmt.Errorf("Gemini API error: %w", err)
	}
	return &ProviderError{Provider: ProviderGemini, StatusCode: code, Detail: st.Message()}
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
