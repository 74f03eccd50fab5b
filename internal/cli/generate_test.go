package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/config"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/services"
)

type fakeProvider struct {
	reply   string
	prompts []string
}

func (f *fakeProvider) Name() string         { return services.ProviderOpenAI }
func (f *fakeProvider) DefaultModel() string { return "fake-model" }
func (f *fakeProvider) RequiresModel() bool  { return false }
func (f *fakeProvider) Complete(ctx context.Context, req services.CompletionRequest) (string, error) {
	f.prompts = append(f.prompts, req.Prompt)
	return f.reply, nil
}

func testDeps(p services.Provider) commandDeps {
	return commandDeps{
		loadConfig: func() *config.Config {
			return &config.Config{MaxTextLength: 1000, LLMMaxAttempts: 1, LLMInitialBackoff: time.Millisecond}
		},
		providers: func(string) []services.Provider { return []services.Provider{p} },
	}
}

const outline = `{"title":"Go at Work","slides":[{"title":"Why Go","content":["Fast builds","Simple concurrency"],"speakerNotes":"Open with the build times"},{"title":"Adoption","content":["Cloud tooling"]}]}`

func TestGenerate_Local(t *testing.T) {
	provider := &fakeProvider{reply: outline}
	out := filepath.Join(t.TempDir(), "decks", "go.pptx")

	cmd := newGenerateCommand(testDeps(provider))
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--text", "Go is a language.", "--api-key", "k", "--notes", "-o", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("Expected a valid zip at %s: %v", out, err)
	}
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"ppt/presentation.xml", "ppt/slides/slide1.xml", "ppt/slides/slide3.xml", "ppt/notesSlides/notesSlide2.xml"} {
		if !names[want] {
			t.Errorf("Expected %s in generated deck", want)
		}
	}

	if !strings.Contains(stdout.String(), "2 content slides") {
		t.Errorf("Unexpected summary: %q", stdout.String())
	}
	if len(provider.prompts) != 1 || !strings.Contains(provider.prompts[0], "Go is a language.") {
		t.Errorf("Expected prompt to carry the text, got %v", provider.prompts)
	}

	entries, _ := os.ReadDir(filepath.Dir(out))
	if len(entries) != 1 {
		t.Errorf("Expected only the deck in the output dir, found %d entries", len(entries))
	}
}

func TestGenerate_TextFromStdin(t *testing.T) {
	provider := &fakeProvider{reply: outline}
	out := filepath.Join(t.TempDir(), "deck.pptx")

	cmd := newGenerateCommand(testDeps(provider))
	cmd.SetIn(strings.NewReader("piped notes"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--text-file", "-", "--api-key", "k", "-o", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(provider.prompts[0], "piped notes") {
		t.Errorf("Expected stdin text in prompt")
	}
}

func TestGenerate_LocalValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no text", []string{"--api-key", "k"}, "Text content is required"},
		{"text too long", []string{"--api-key", "k", "--text", strings.Repeat("x", 1001)}, "too long"},
		{"no api key", []string{"--text", "hello"}, "API key is required"},
		{"bad template", []string{"--text", "hello", "--api-key", "k", "--template", "deck.key"}, "Only .pptx and .potx"},
		{"remote without template", []string{"--text", "hello", "--api-key", "k", "--server", "http://127.0.0.1:1"}, "--template is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(apiKeyEnv, "")
			provider := &fakeProvider{reply: outline}
			cmd := newGenerateCommand(testDeps(provider))
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append(tc.args, "-o", filepath.Join(t.TempDir(), "x.pptx")))

			err := cmd.Execute()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Expected error containing %q, got %v", tc.wantErr, err)
			}
			if len(provider.prompts) != 0 {
				t.Error("Expected no LLM call")
			}
		})
	}
}

func TestGenerate_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			r.ParseMultipartForm(1 << 20)
			if r.FormValue("llmProvider") != "gemini" {
				t.Errorf("Unexpected provider %q", r.FormValue("llmProvider"))
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(models.GenerateResponse{
				Success:     true,
				DownloadURL: "/api/download/presentation-r.pptx",
				Preview:     []models.SlidePreview{{Title: "One", SlideNumber: 1}},
			})
		case "/api/download/presentation-r.pptx":
			w.Write([]byte("PKremote"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	template := filepath.Join(dir, "brand.potx")
	os.WriteFile(template, []byte("PK"), 0o644)
	out := filepath.Join(dir, "remote.pptx")

	cmd := newGenerateCommand(testDeps(&fakeProvider{}))
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--text", "hi", "--api-key", "k", "-p", "gemini", "--template", template, "--server", srv.URL, "-o", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	data, _ := os.ReadFile(out)
	if string(data) != "PKremote" {
		t.Errorf("Unexpected downloaded content %q", data)
	}
	if !strings.Contains(stdout.String(), "1. One") {
		t.Errorf("Unexpected summary %q", stdout.String())
	}
}

func TestProvidersCommand(t *testing.T) {
	cmd := newProvidersCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, name := range []string{"anthropic", "gemini", "openai", "openrouter"} {
		if !strings.Contains(stdout.String(), name) {
			t.Errorf("Expected %s in provider list: %q", name, stdout.String())
		}
	}
}
