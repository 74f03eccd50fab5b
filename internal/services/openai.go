package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	openAIURL     = "https://api.openai.com/v1/chat/completions"
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
)

// ChatCompletionsProvider talks to any OpenAI-compatible chat completions
// endpoint. OpenAI and OpenRouter share it.
type ChatCompletionsProvider struct {
	name          string
	url           string
	defaultModel  string
	requiresModel bool
	timeout       time.Duration
	headers       map[string]string
	httpClient    *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func NewOpenAIProvider() *ChatCompletionsProvider {
	return &ChatCompletionsProvider{
		name:         ProviderOpenAI,
		url:          openAIURL,
		defaultModel: "gpt-4",
		timeout:      60 * time.Second,
		httpClient:   &http.Client{},
	}
}

// NewOpenRouterProvider requires an explicit model on every request.
func NewOpenRouterProvider(httpReferer string) *ChatCompletionsProvider {
	return &ChatCompletionsProvider{
		name:          ProviderOpenRouter,
		url:           openRouterURL,
		requiresModel: true,
		timeout:       90 * time.Second,
		headers: map[string]string{
			"HTTP-Referer": httpReferer,
			"X-Title":      "Presentation Generator",
		},
		httpClient: &http.Client{},
	}
}

// WithBaseURL points the provider at a different endpoint.
func (p *ChatCompletionsProvider) WithBaseURL(url string) *ChatCompletionsProvider {
	p.url = url
	return p
}

func (p *ChatCompletionsProvider) Name() string         { return p.name }
func (p *ChatCompletionsProvider) DefaultModel() string { return p.defaultModel }
func (p *ChatCompletionsProvider) RequiresModel() bool  { return p.requiresModel }

func (p *ChatCompletionsProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body := chatCompletionRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})

	headers := map[string]string{"Authorization": "Bearer " + req.APIKey}
	for k, v := range p.headers {
		headers[k] = v
	}

	var resp chatCompletionResponse
	if err := postJSON(ctx, p.httpClient, p.name, p.url, headers, body, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s returned an empty response", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}
