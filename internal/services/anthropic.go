package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

type AnthropicProvider struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func NewAnthropicProvider() *AnthropicProvider {
	return &AnthropicProvider{
		url:        anthropicURL,
		timeout:    60 * time.Second,
		httpClient: &http.Client{},
	}
}

func (p *AnthropicProvider) WithBaseURL(url string) *AnthropicProvider {
	p.url = url
	return p
}

func (p *AnthropicProvider) Name() string         { return ProviderAnthropic }
func (p *AnthropicProvider) DefaultModel() string { return "claude-3-sonnet-20240229" }
func (p *AnthropicProvider) RequiresModel() bool  { return false }

// Complete sends the prompt as a lone user message.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body := anthropicRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: req.Prompt}},
	}
	headers := map[string]string{
		"x-api-key":         req.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, p.httpClient, ProviderAnthropic, p.url, headers, body, &resp); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%s returned an empty response", ProviderAnthropic)
	}
	return text.String(), nil
}
