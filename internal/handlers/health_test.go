package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/services"
)

type stubLister []services.ProviderInfo

func (s stubLister) SupportedProviders() []services.ProviderInfo { return s }

func TestHealth(t *testing.T) {
	h := NewSystemHandler("production", "8080", stubLister{})
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "OK" || body["environment"] != "production" || body["port"] != "8080" {
		t.Errorf("Unexpected health body: %v", body)
	}
	if body["timestamp"] != "2024-05-01T12:00:00Z" {
		t.Errorf("Unexpected timestamp %q", body["timestamp"])
	}
}

func TestProviders(t *testing.T) {
	h := NewSystemHandler("development", "8080", stubLister{
		{Name: "openai", DefaultModel: "gpt-4"},
		{Name: "openrouter", RequiresModel: true},
	})

	rr := httptest.NewRecorder()
	h.Providers(rr, httptest.NewRequest(http.MethodGet, "/api/providers", nil))

	var body struct {
		Providers          []services.ProviderInfo `json:"providers"`
		TemplateExtensions []string                `json:"templateExtensions"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Providers) != 2 || !body.Providers[1].RequiresModel {
		t.Errorf("Unexpected providers: %+v", body.Providers)
	}
	if len(body.TemplateExtensions) != 2 {
		t.Errorf("Unexpected template extensions: %v", body.TemplateExtensions)
	}
}
