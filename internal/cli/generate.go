package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/client"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/config"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/services"
)

const apiKeyEnv = "DECKGEN_API_KEY"

type generateOptions struct {
	text         string
	textFile     string
	sourceFile   string
	guidance     string
	templatePath string
	provider     string
	model        string
	apiKey       string
	output       string
	server       string
	speakerNotes bool
	retries      int
}

// commandDeps lets tests replace configuration and providers.
type commandDeps struct {
	loadConfig func() *config.Config
	providers  func(httpReferer string) []services.Provider
}

func defaultDeps() commandDeps {
	return commandDeps{loadConfig: config.Load, providers: services.DefaultProviders}
}

func newGenerateCommand(deps commandDeps) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a deck locally, or through a running server with --server",
		Example: `  deckgen generate --text-file notes.md --template brand.pptx --provider anthropic
  deckgen generate --text "..." --template brand.potx --provider openrouter --model openai/gpt-4o --server http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), deps, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.text, "text", "t", "", "source text")
	f.StringVarP(&opts.textFile, "text-file", "f", "", "read source text from a file ('-' for stdin)")
	f.StringVar(&opts.sourceFile, "source", "", "extra source document (.txt, .md, .pdf, .docx)")
	f.StringVarP(&opts.guidance, "guidance", "g", "", "tone or use case, e.g. \"investor pitch\"")
	f.StringVar(&opts.templatePath, "template", "", "PowerPoint template (.pptx or .potx)")
	f.StringVarP(&opts.provider, "provider", "p", services.ProviderOpenAI, "LLM provider: openai, anthropic, gemini, openrouter")
	f.StringVarP(&opts.model, "model", "m", "", "model name (required for openrouter)")
	f.StringVar(&opts.apiKey, "api-key", "", "LLM API key (defaults to $"+apiKeyEnv+")")
	f.StringVarP(&opts.output, "output", "o", "presentation.pptx", "where to write the deck")
	f.BoolVar(&opts.speakerNotes, "notes", false, "generate speaker notes")
	f.StringVar(&opts.server, "server", "", "generate through the server at this URL")
	f.IntVar(&opts.retries, "retries", client.DefaultMaxRetries, "retries on timeout, rate limit or network errors (with --server)")

	return cmd
}

func runGenerate(ctx context.Context, stdin io.Reader, out io.Writer, deps commandDeps, opts *generateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.apiKey == "" {
		opts.apiKey = os.Getenv(apiKeyEnv)
	}

	text, err := readText(stdin, opts)
	if err != nil {
		return err
	}
	if opts.templatePath != "" && !isTemplate(opts.templatePath) {
		return errors.New("Only .pptx and .potx files are allowed")
	}

	if opts.server != "" {
		return runRemote(ctx, out, text, opts)
	}
	return runLocal(ctx, out, text, deps, opts)
}

func runRemote(ctx context.Context, out io.Writer, text string, opts *generateOptions) error {
	if opts.templatePath == "" {
		return errors.New("--template is required with --server")
	}

	c := client.New(opts.server, client.WithRetry(opts.retries, client.DefaultInitialInterval))
	resp, err := c.Generate(ctx, client.GenerateParams{
		Text:         text,
		Guidance:     opts.guidance,
		APIKey:       opts.apiKey,
		Provider:     opts.provider,
		Model:        opts.model,
		SpeakerNotes: opts.speakerNotes,
		TemplatePath: opts.templatePath,
		SourcePath:   opts.sourceFile,
	})
	if err != nil {
		return err
	}
	if err := c.Download(ctx, resp.DownloadURL, opts.output); err != nil {
		return err
	}

	printSummary(out, opts.output, resp.Preview)
	return nil
}

func runLocal(ctx context.Context, out io.Writer, text string, deps commandDeps, opts *generateOptions) error {
	cfg := deps.loadConfig()

	if opts.sourceFile != "" {
		extra, err := services.NewFileExtractService().ExtractTextFromPath(opts.sourceFile)
		if err != nil {
			return err
		}
		text = joinText(text, extra)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("Text content is required (use --text, --text-file or --source)")
	}
	if utf8.RuneCountInString(text) > cfg.MaxTextLength {
		return fmt.Errorf("Text content is too long (max %d characters)", cfg.MaxTextLength)
	}
	if opts.apiKey == "" {
		return fmt.Errorf("API key is required (use --api-key or $%s)", apiKeyEnv)
	}

	llm := services.NewLLMService(
		deps.providers(cfg.HTTPReferer),
		services.RetryPolicy{MaxAttempts: cfg.LLMMaxAttempts, InitialInterval: cfg.LLMInitialBackoff},
		nil,
	)

	outDir := filepath.Dir(opts.output)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	workDir, err := os.MkdirTemp(outDir, ".deckgen-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	generator := services.NewGenerationService(services.GenerationDeps{
		LLM:       llm,
		Templates: services.NewTemplateService(nil),
		Decks:     services.NewPresentationService(),
		OutputDir: workDir,
		OutputTTL: time.Hour,
	})

	templateName := filepath.Base(opts.templatePath)
	if opts.templatePath == "" {
		templateName = "built-in"
	}
	result, err := generator.Generate(ctx, services.GenerationRequest{
		Text:         text,
		Guidance:     opts.guidance,
		APIKey:       opts.apiKey,
		Provider:     strings.ToLower(opts.provider),
		Model:        opts.model,
		SpeakerNotes: opts.speakerNotes,
		TemplatePath: opts.templatePath,
		TemplateName: templateName,
	})
	if err != nil {
		return err
	}

	if err := os.Rename(filepath.Join(workDir, result.Filename), opts.output); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.output, err)
	}

	printSummary(out, opts.output, result.Preview)
	return nil
}

func readText(stdin io.Reader, opts *generateOptions) (string, error) {
	text := opts.text
	if opts.textFile == "" {
		return text, nil
	}

	var (
		data []byte
		err  error
	)
	if opts.textFile == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(opts.textFile)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return joinText(text, string(data)), nil
}

func joinText(a, b string) string {
	switch {
	case strings.TrimSpace(a) == "":
		return b
	case strings.TrimSpace(b) == "":
		return a
	}
	return strings.TrimRight(a, "\n") + "\n\n" + b
}

func isTemplate(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pptx" || ext == ".potx"
}

func printSummary(out io.Writer, path string, preview []models.SlidePreview) {
	fmt.Fprintf(out, "✓ Wrote %s (%d content slides)\n", path, len(preview))
	for _, s := range preview {
		notes := ""
		if s.SpeakerNotes != "" {
			notes = " [notes]"
		}
		fmt.Fprintf(out, "  %2d. %s (%d bullets)%s\n", s.SlideNumber, s.Title, len(s.Content), notes)
	}
}
