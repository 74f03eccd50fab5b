package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestChatCompletionsProvider_Complete(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Unexpected Authorization header %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"title\":\"x\"}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider().WithBaseURL(srv.URL)
	out, err := p.Complete(context.Background(), CompletionRequest{
		APIKey:       "sk-test",
		Model:        "gpt-4",
		SystemPrompt: "system",
		Prompt:       "user prompt",
		MaxTokens:    3000,
		Temperature:  0.7,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"title":"x"}` {
		t.Errorf("Unexpected completion %q", out)
	}
	if got.Model != "gpt-4" || got.MaxTokens != 3000 || len(got.Messages) != 2 {
		t.Fatalf("Unexpected request body: %+v", got)
	}
	if got.Messages[0].Role != "system" || got.Messages[1].Role != "user" || got.Messages[1].Content != "user prompt" {
		t.Errorf("Unexpected messages: %+v", got.Messages)
	}
}

func TestOpenRouterProvider_SendsAttributionHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("HTTP-Referer") != "http://localhost:3001" || r.Header.Get("X-Title") != "Presentation Generator" {
			t.Errorf("Missing attribution headers: %v", r.Header)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenRouterProvider("http://localhost:3001").WithBaseURL(srv.URL)
	if !p.RequiresModel() || p.DefaultModel() != "" {
		t.Errorf("Expected OpenRouter to require an explicit model")
	}
	if _, err := p.Complete(context.Background(), CompletionRequest{APIKey: "k", Model: "openai/gpt-4o", Prompt: "p"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestAnthropicProvider_Complete(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "ant-key" || r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("Unexpected headers: %v", r.Header)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}]}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider().WithBaseURL(srv.URL)
	out, err := p.Complete(context.Background(), CompletionRequest{APIKey: "ant-key", Model: p.DefaultModel(), SystemPrompt: "ignored", Prompt: "hello", MaxTokens: 3000})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "part one part two" {
		t.Errorf("Unexpected completion %q", out)
	}
	if got.Model != "claude-3-sonnet-20240229" || got.MaxTokens != 3000 || len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Errorf("Unexpected request body: %+v", got)
	}
}

func TestProviders_HTTPErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`, http.StatusUnauthorized},
		{"forbidden", http.StatusForbidden, `{"error":"forbidden"}`, http.StatusUnauthorized},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached"}}`, http.StatusTooManyRequests},
		{"quota via 429", http.StatusTooManyRequests, `{"error":{"message":"You exceeded your current quota"}}`, http.StatusPaymentRequired},
		{"payment required", http.StatusPaymentRequired, `{"message":"insufficient credits"}`, http.StatusPaymentRequired},
		{"gateway timeout", http.StatusGatewayTimeout, `upstream timed out`, http.StatusRequestTimeout},
		{"server error", http.StatusInternalServerError, `boom`, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			providers := []Provider{
				NewOpenAIProvider().WithBaseURL(srv.URL),
				NewAnthropicProvider().WithBaseURL(srv.URL),
			}
			for _, p := range providers {
				_, err := p.Complete(context.Background(), CompletionRequest{APIKey: "k", Model: "m", Prompt: "p"})

				var pe *ProviderError
				if !errors.As(err, &pe) || pe.StatusCode != tc.status {
					t.Fatalf("%s: expected ProviderError %d, got %v", p.Name(), tc.status, err)
				}
				if got := ClassifyError(err).StatusCode; got != tc.wantStatus {
					t.Errorf("%s: classified as %d, want %d (%v)", p.Name(), got, tc.wantStatus, err)
				}
			}
		})
	}
}

func TestProviders_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	p := NewOpenAIProvider().WithBaseURL(srv.URL)
	p.timeout = 20 * time.Millisecond

	_, err := p.Complete(context.Background(), CompletionRequest{APIKey: "k", Model: "m", Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("Expected timeout error, got %v", err)
	}
	if got := ClassifyError(err).StatusCode; got != http.StatusRequestTimeout {
		t.Errorf("Expected 408 classification, got %d", got)
	}
}

func TestProviders_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider().WithBaseURL(srv.URL).Complete(context.Background(), CompletionRequest{APIKey: "k", Model: "m", Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "empty response") {
		t.Errorf("Expected empty response error, got %v", err)
	}
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":{"message":"nested"}}`, "nested"},
		{`{"error":"plain"}`, "plain"},
		{`{"message":"top"}`, "top"},
		{`not json`, "not json"},
		{strings.Repeat("a", 400), strings.Repeat("a", 300) + "..."},
	}
	for _, tc := range tests {
		if got := errorDetail([]byte(tc.body)); got != tc.want {
			t.Errorf("errorDetail(%.20q) = %.40q, want %.40q", tc.body, got, tc.want)
		}
	}
}
