package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/services"
)

const (
	maxSourceBytes   = 10 << 20
	formFieldSlack   = 1 << 20
	multipartMemory  = 32 << 20
	defaultProvider  = services.ProviderOpenAI
	templateRequired = "PowerPoint template file is required"

	// generateTimeout bounds the whole pipeline, retries included.
	generateTimeout = 5 * time.Minute
)

var templateExtensions = []string{".pptx", ".potx"}

type presentationGenerator interface {
	Generate(ctx context.Context, req services.GenerationRequest) (*services.GenerationResult, error)
}

type providerCatalog interface {
	Lookup(name string) (services.ProviderInfo, bool)
}

type sourceExtractor interface {
	ExtractTextFromPath(path string) (string, error)
}

type PresentationHandler struct {
	generator        presentationGenerator
	providers        providerCatalog
	extractor        sourceExtractor
	uploadDir        string
	maxTemplateBytes int64
	maxTextLength    int
	timeout          time.Duration
}

func NewPresentationHandler(generator presentationGenerator, providers providerCatalog, extractor sourceExtractor, uploadDir string, maxTemplateBytes int64, maxTextLength int) *PresentationHandler {
	return &PresentationHandler{
		generator:        generator,
		providers:        providers,
		extractor:        extractor,
		uploadDir:        uploadDir,
		maxTemplateBytes: maxTemplateBytes,
		maxTextLength:    maxTextLength,
		timeout:          generateTimeout,
	}
}

// Generate handles POST /api/generate. Every validation runs before the
// pipeline starts, and uploaded files are removed on every path.
func (h *PresentationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxTemplateBytes+maxSourceBytes+formFieldSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeValidationError(w, h.tooLargeMessage())
			return
		}
		writeValidationError(w, "Invalid multipart form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	text := r.FormValue("text")
	guidance := strings.TrimSpace(r.FormValue("guidance"))
	apiKey := strings.TrimSpace(r.FormValue("apiKey"))
	providerName := strings.ToLower(strings.TrimSpace(r.FormValue("llmProvider")))
	model := strings.TrimSpace(r.FormValue("model"))
	speakerNotes, _ := strconv.ParseBool(r.FormValue("generateSpeakerNotes"))
	jobID := strings.TrimSpace(r.FormValue("jobId"))
	if providerName == "" {
		providerName = defaultProvider
	}

	if jobID != "" {
		if _, err := uuid.Parse(jobID); err != nil {
			writeValidationError(w, "Invalid jobId")
			return
		}
	}

	sourceText, ok := h.readSourceFile(w, r)
	if !ok {
		return
	}
	if sourceText != "" {
		if strings.TrimSpace(text) == "" {
			text = sourceText
		} else {
			text = strings.TrimRight(text, "\n") + "\n\n" + sourceText
		}
	}

	if strings.TrimSpace(text) == "" {
		writeValidationError(w, "Text content is required")
		return
	}
	if utf8.RuneCountInString(text) > h.maxTextLength {
		writeValidationError(w, fmt.Sprintf("Text content is too long (max %s characters)", groupThousands(h.maxTextLength)))
		return
	}
	if apiKey == "" {
		writeValidationError(w, "API key is required")
		return
	}

	file, header, err := r.FormFile("templateFile")
	if err != nil {
		writeValidationError(w, templateRequired)
		return
	}
	defer file.Close()

	if !hasExtension(header.Filename, templateExtensions) {
		writeValidationError(w, "Only .pptx and .potx files are allowed")
		return
	}
	if header.Size > h.maxTemplateBytes {
		writeValidationError(w, h.tooLargeMessage())
		return
	}

	info, ok := h.providers.Lookup(providerName)
	if !ok {
		writeValidationError(w, fmt.Sprintf("Unsupported LLM provider: %s", providerName))
		return
	}
	if info.RequiresModel && model == "" {
		writeValidationError(w, fmt.Sprintf("Model selection is required when using %s", providerLabel(info.Name)))
		return
	}

	templatePath, err := h.saveUpload(file, header.Filename)
	if err != nil {
		log.Printf("[%s] failed to store template upload: %v", requestID(r), err)
		writeJSON(w, http.StatusInternalServerError, models.GenerateResponse{Success: false, Error: "Failed to store uploaded template"})
		return
	}
	defer removeUpload(templatePath)

	modelLabel := ""
	if model != "" {
		modelLabel = " (" + model + ")"
	}
	log.Printf("[%s] generating presentation with %s%s, %d characters, template %q", requestID(r), info.Name, modelLabel, utf8.RuneCountInString(text), header.Filename)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.generator.Generate(ctx, services.GenerationRequest{
		JobID:        jobID,
		Text:         text,
		Guidance:     guidance,
		APIKey:       apiKey,
		Provider:     info.Name,
		Model:        model,
		SpeakerNotes: speakerNotes,
		TemplatePath: templatePath,
		TemplateName: header.Filename,
	})
	if err != nil {
		handleGenerationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.GenerateResponse{
		Success:     true,
		DownloadURL: result.DownloadURL,
		Preview:     result.Preview,
	})
}

// readSourceFile extracts the optional sourceFile upload. It writes the
// error response itself and reports false when the request must stop.
func (h *PresentationHandler) readSourceFile(w http.ResponseWriter, r *http.Request) (string, bool) {
	file, header, err := r.FormFile("sourceFile")
	if err != nil {
		return "", true
	}
	defer file.Close()

	if !services.IsSupportedSource(header.Filename) {
		writeValidationError(w, fmt.Sprintf("Unsupported source file type. Allowed: %s", strings.Join(services.SourceExtensions, ", ")))
		return "", false
	}
	if header.Size > maxSourceBytes {
		writeValidationError(w, fmt.Sprintf("Source file is too large (max %dMB)", maxSourceBytes>>20))
		return "", false
	}

	path, err := h.saveUpload(file, header.Filename)
	if err != nil {
		log.Printf("[%s] failed to store source upload: %v", requestID(r), err)
		writeJSON(w, http.StatusInternalServerError, models.GenerateResponse{Success: false, Error: "Failed to store uploaded source file"})
		return "", false
	}
	defer removeUpload(path)

	text, err := h.extractor.ExtractTextFromPath(path)
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			writeValidationError(w, ve.Message)
			return "", false
		}
		log.Printf("[%s] source extraction failed: %v", requestID(r), err)
		writeValidationError(w, "Could not read text from the source file")
		return "", false
	}
	return text, true
}

// saveUpload writes an upload under a random name that keeps only the
// original extension.
func (h *PresentationHandler) saveUpload(src multipart.File, originalName string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(h.uploadDir, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func (h *PresentationHandler) tooLargeMessage() string {
	return fmt.Sprintf("Template file is too large (max %dMB)", h.maxTemplateBytes>>20)
}

func removeUpload(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove upload %s: %v", path, err)
	}
}

func hasExtension(name string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

func providerLabel(name string) string {
	switch name {
	case services.ProviderOpenAI:
		return "OpenAI"
	case services.ProviderAnthropic:
		return "Anthropic"
	case services.ProviderGemini:
		return "Gemini"
	case services.ProviderOpenRouter:
		return "OpenRouter"
	}
	return name
}

// groupThousands formats n with comma separators.
func groupThousands(n int) string {
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	s := strconv.Itoa(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
