package handlers

import (
	"net/http"
	"time"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/services"
)

type providerLister interface {
	SupportedProviders() []services.ProviderInfo
}

type SystemHandler struct {
	env       string
	port      string
	providers providerLister
	now       func() time.Time
}

func NewSystemHandler(env, port string, providers providerLister) *SystemHandler {
	return &SystemHandler{env: env, port: port, providers: providers, now: time.Now}
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "OK",
		"timestamp":   h.now().UTC().Format(time.RFC3339Nano),
		"environment": h.env,
		"port":        h.port,
	})
}

// Providers lists the LLM providers the generate endpoint accepts.
func (h *SystemHandler) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers":          h.providers.SupportedProviders(),
		"templateExtensions": templateExtensions,
		"sourceExtensions":   services.SourceExtensions,
	})
}
