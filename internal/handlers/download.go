package handlers

import (
	"context"
	"errors"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/services"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/storage"
)

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

type outputLookup interface {
	Lookup(ctx context.Context, filename string) (*models.OutputRecord, error)
}

type DownloadHandler struct {
	outputDir string
	registry  outputLookup
}

// NewDownloadHandler serves decks from outputDir. registry may be nil, in
// which case files are served under their generated name.
func NewDownloadHandler(outputDir string, registry outputLookup) *DownloadHandler {
	return &DownloadHandler{outputDir: outputDir, registry: registry}
}

func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if !services.IsOutputFilename(filename) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "File not found"})
		return
	}

	f, err := os.Open(filepath.Join(h.outputDir, filename))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "File not found"})
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "File not found"})
		return
	}

	w.Header().Set("Content-Type", pptxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": h.attachmentName(r.Context(), filename)}))
	http.ServeContent(w, r, filename, stat.ModTime(), f)
}

func (h *DownloadHandler) attachmentName(ctx context.Context, filename string) string {
	if h.registry == nil {
		return filename
	}
	rec, err := h.registry.Lookup(ctx, filename)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("output registry lookup for %s failed: %v", filename, err)
		}
		return filename
	}
	if name := friendlyName(rec.Title); name != "" {
		return name + ".pptx"
	}
	return filename
}

// friendlyName reduces a deck title to a safe file name stem.
func friendlyName(title string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
		if b.Len() >= 80 {
			break
		}
	}
	return strings.TrimRight(b.String(), "-")
}
