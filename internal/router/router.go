package router

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/handlers"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/middleware"
)

type Options struct {
	CORSOrigins []string
	ClientDir   string
	// Metrics and WebSocket are optional.
	Metrics   http.Handler
	WebSocket http.HandlerFunc
}

func New(
	presentationHandler *handlers.PresentationHandler,
	downloadHandler *handlers.DownloadHandler,
	systemHandler *handlers.SystemHandler,
	generationsHandler *handlers.GenerationsHandler,
	generateLimiter *middleware.RateLimiter,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", systemHandler.Health)
		r.Get("/providers", systemHandler.Providers)

		r.Group(func(r chi.Router) {
			if generateLimiter != nil {
				r.Use(generateLimiter.Middleware)
			}
			r.Post("/generate", presentationHandler.Generate)
		})

		r.Get("/download/{filename}", downloadHandler.Download)
		r.Get("/generations", generationsHandler.List)

		if opts.WebSocket != nil {
			r.Get("/ws", opts.WebSocket)
		}

		r.NotFound(apiNotFound)
		r.MethodNotAllowed(apiNotFound)
	})

	r.NotFound(spaHandler(opts.ClientDir))

	return r
}

func apiNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"error": "API endpoint not found"})
}

// spaHandler serves the built client from dir, falling back to index.html
// for client-side routes.
func spaHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			apiNotFound(w, r)
			return
		}

		if dir == "" {
			frontendMissing(w, r, dir)
			return
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			frontendMissing(w, r, dir)
			return
		}

		clean := filepath.Clean("/" + r.URL.Path)
		if clean != "/" {
			candidate := filepath.Join(dir, filepath.FromSlash(clean))
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				http.ServeFile(w, r, candidate)
				return
			}
		}
		http.ServeFile(w, r, index)
	}
}

func frontendMissing(w http.ResponseWriter, r *http.Request, dir string) {
	if r.URL.Path != "/" {
		http.Error(w, "Frontend not available. Please build the client first.", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "Presentation Generator API",
		"status":    "Frontend not built",
		"buildPath": dir,
		"endpoints": map[string]string{
			"health":   "/api/health",
			"generate": "/api/generate (POST)",
			"download": "/api/download/:filename",
		},
	})
}
