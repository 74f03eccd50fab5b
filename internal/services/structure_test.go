package services

import (
	"errors"
	"strings"
	"testing"
)

func TestParseStructure(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantTitle  string
		wantSlides int
	}{
		{"plain object", validOutline, "Deck", 1},
		{"code fenced", "```json\n" + validOutline + "\n```", "Deck", 1},
		{"wrapped in prose", "Here is your deck:\n" + validOutline + "\nEnjoy!", "Deck", 1},
		{
			"notes and nested bullets",
			`{"title":"T","slides":[{"title":"A","content":["x",{"point":"y"}],"speakerNotes":"  say hi  "},{"title":"B","content":["z"]}]}`,
			"T", 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := ParseStructure(tc.raw)
			if err != nil {
				t.Fatalf("ParseStructure: %v", err)
			}
			if s.Title != tc.wantTitle || len(s.Slides) != tc.wantSlides {
				t.Errorf("Unexpected structure: %+v", s)
			}
		})
	}
}

func TestParseStructure_NormalizesSlides(t *testing.T) {
	s, err := ParseStructure(`{"title":"T","slides":[{"title":"A","content":["x",{"point":"y"}],"speakerNotes":"  say hi  "}]}`)
	if err != nil {
		t.Fatalf("ParseStructure: %v", err)
	}
	slide := s.Slides[0]
	if slide.SpeakerNotes != "say hi" {
		t.Errorf("Expected trimmed notes, got %q", slide.SpeakerNotes)
	}
	if slide.Content[1] != `{"point":"y"}` {
		t.Errorf("Expected non-string bullet to be rendered as JSON, got %q", slide.Content[1])
	}
}

func TestParseStructure_Errors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"empty", "", "Invalid JSON response from LLM"},
		{"truncated", `{"title":"T","slides":[`, "Invalid JSON response from LLM"},
		{"array", `["a"]`, "Response is not a valid object"},
		{"missing title", `{"slides":[]}`, "Missing or invalid title"},
		{"blank title", `{"title":"  ","slides":[]}`, "Missing or invalid title"},
		{"missing slides", `{"title":"T"}`, "Missing or invalid slides array"},
		{"slide not object", `{"title":"T","slides":["x"]}`, "Slide 1 is not a valid object"},
		{"slide without title", `{"title":"T","slides":[{"content":["a"]}]}`, "Slide 1 is missing a valid title"},
		{"slide without content", `{"title":"T","slides":[{"title":"A"}]}`, "Slide 1 is missing a valid content array"},
		{"slide with empty content", `{"title":"T","slides":[{"title":"A","content":["a"]},{"title":"B","content":[]}]}`, "Slide 2 has no content"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStructure(tc.raw)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseStructure_MalformedAlwaysFails(t *testing.T) {
	for _, raw := range []string{"{", "}", "{]", "```json\n{\"title\": }\n```", "null"} {
		_, err := ParseStructure(raw)
		if err == nil {
			t.Errorf("Expected %q to be rejected", raw)
		}
		if raw != "null" && !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("Expected ErrInvalidJSON for %q, got %v", raw, err)
		}
	}
}
